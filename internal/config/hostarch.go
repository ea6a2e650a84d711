package config

import "runtime"

// NormalizeArch maps machine names reported by the OS or the Go toolchain
// onto x86_64/arm64. Unknown names are returned unchanged.
func NormalizeArch(machine string) string {
	switch machine {
	case "arm64", "aarch64", "ARM64":
		return ArchARM64
	case "x86_64", "amd64", "AMD64", "x64":
		return ArchX86_64
	}
	return machine
}

// HostArch returns the architecture of the machine running the build.
func HostArch() string {
	if m := hostMachine(); m != "" {
		return NormalizeArch(m)
	}
	return NormalizeArch(runtime.GOARCH)
}
