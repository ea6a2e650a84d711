package meson

import (
	"fmt"
	"os"
	"strings"
)

// Machine describes the host machine section of a cross file.
type Machine struct {
	System    string
	CPUFamily string
	CPU       string
	Endian    string
}

// CrossFile is a meson cross compilation description.
type CrossFile struct {
	Binaries map[string]string
	Host     Machine
	CArgs    []string
	CXXArgs  []string
	LinkArgs []string
}

// CPUFamily maps an architecture name onto a meson cpu_family value.
func CPUFamily(arch string) string {
	if arch == "arm64" {
		return "aarch64"
	}
	return arch
}

// DarwinCrossFile returns the cross file for building arch objects on a
// macOS host of another architecture.
func DarwinCrossFile(arch, minVersion string) CrossFile {
	cflags := []string{"-arch", arch, "-mmacosx-version-min=" + minVersion, "-fPIC"}
	return CrossFile{
		Binaries: map[string]string{"c": "cc", "cpp": "c++", "ar": "ar", "strip": "strip"},
		Host:     Machine{System: "darwin", CPUFamily: CPUFamily(arch), CPU: arch, Endian: "little"},
		CArgs:    cflags,
		CXXArgs:  cflags,
		LinkArgs: []string{"-arch", arch},
	}
}

// String renders f in meson's ini dialect.
func (f CrossFile) String() string {
	var b strings.Builder
	b.WriteString("[binaries]\n")
	for _, k := range []string{"c", "cpp", "ar", "strip"} {
		if v, ok := f.Binaries[k]; ok {
			fmt.Fprintf(&b, "%s = %s\n", k, quote(v))
		}
	}
	b.WriteString("\n[host_machine]\n")
	fmt.Fprintf(&b, "system = %s\n", quote(f.Host.System))
	fmt.Fprintf(&b, "cpu_family = %s\n", quote(f.Host.CPUFamily))
	fmt.Fprintf(&b, "cpu = %s\n", quote(f.Host.CPU))
	fmt.Fprintf(&b, "endian = %s\n", quote(f.Host.Endian))
	b.WriteString("\n[built-in options]\n")
	fmt.Fprintf(&b, "c_args = %s\n", array(f.CArgs))
	fmt.Fprintf(&b, "cpp_args = %s\n", array(f.CXXArgs))
	fmt.Fprintf(&b, "c_link_args = %s\n", array(f.LinkArgs))
	fmt.Fprintf(&b, "cpp_link_args = %s\n", array(f.LinkArgs))
	return b.String()
}

// WriteFile writes f to path.
func (f CrossFile) WriteFile(path string) error {
	return os.WriteFile(path, []byte(f.String()), 0o644)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func array(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
