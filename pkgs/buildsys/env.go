package buildsys

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Env is the set of variables a driver adds to the inherited environment.
// Drivers never modify the process environment itself.
type Env map[string]string

// Set sets key to value.
func (e Env) Set(key, value string) {
	e[key] = value
}

// Prepend prepends a value to a list variable using the separator of goos.
// The inherited value is kept at the end of the list.
func (e Env) Prepend(goos, key, value string) {
	sep := string(os.PathListSeparator)
	if goos == "windows" {
		sep = ";"
	} else if goos != "" {
		sep = ":"
	}
	current, ok := e[key]
	if !ok {
		current = os.Getenv(key)
	}
	if current == "" {
		e[key] = value
		return
	}
	e[key] = value + sep + current
}

// AppendFlag appends a flag to a space separated variable.
func (e Env) AppendFlag(key, flag string) {
	current, ok := e[key]
	if !ok {
		current = os.Getenv(key)
	}
	if current == "" {
		e[key] = flag
		return
	}
	e[key] = strings.TrimSpace(current + " " + flag)
}

// Clone returns a copy of e.
func (e Env) Clone() Env {
	return maps.Clone(e)
}

// UsePrefix exposes an install prefix to pkg-config, CMake and the C
// toolchain of goos. Directories that do not exist are skipped.
func (e Env) UsePrefix(goos, prefix string) {
	includeDir := filepath.Join(prefix, "include")
	libDir := filepath.Join(prefix, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	if exists(pkgconfigDir) {
		e.Prepend(goos, "PKG_CONFIG_PATH", pkgconfigDir)
	}
	if exists(prefix) {
		e.Prepend(goos, "CMAKE_PREFIX_PATH", prefix)
	}

	if goos == "windows" {
		// MSVC
		if exists(includeDir) {
			e.Prepend(goos, "INCLUDE", includeDir)
		}
		if exists(libDir) {
			e.Prepend(goos, "LIB", libDir)
		}
		return
	}
	if exists(includeDir) {
		e.AppendFlag("CPPFLAGS", "-I"+includeDir)
	}
	if exists(libDir) {
		e.AppendFlag("LDFLAGS", "-L"+libDir)
	}
}

// MergeEnv returns base with override applied, sorted by key.
func MergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	maps.Copy(envMap, override)
	keys := slices.Sorted(maps.Keys(envMap))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
