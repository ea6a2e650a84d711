//go:build unix

package config

import "golang.org/x/sys/unix"

// hostMachine returns the uname machine field, e.g. "arm64" or "x86_64".
func hostMachine() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Machine[:])
}
