package library

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zlibYAML = `
name: zlib
source_dir: ${ROOT}/repositories/zlib
depends_on: [base, base]
languages: [c]
cmake_options:
  ZLIB_BUILD_EXAMPLES: false
  SOME_LEVEL: 3
disabled_platforms: [windows]
unknown_key: ignored
platforms:
  macos:
    cmake_options:
      SOME_LEVEL: 9
    extra_c_flags: -DMAC
    cross_compile_targets:
      x86_64: x86_64-apple-darwin
`

const libvpxTOML = `
name = "libvpx"
build_system = "autotools"
languages = ["c", "cxx"]

[autotools_options]
enable_static = true
disable_examples = true
target_name = "generic"

[platforms.windows]
build_system = "msys2"
source_dir = "repositories/libvpx-win"

[platforms.windows.cmake_options]
FOO = "bar"

[platforms.windows.runtime_MT]
FOO = "mt"
`

func TestDecodeYAML(t *testing.T) {
	lib, err := Decode(".yaml", []byte(zlibYAML))
	require.NoError(t, err)

	assert.Equal(t, "zlib", lib.Name)
	assert.Equal(t, CMake, lib.BuildSystem)
	assert.Equal(t, []string{"base"}, lib.DependsOn)
	assert.True(t, lib.EnabledFor("linux"))
	assert.False(t, lib.EnabledFor("windows"))

	opts := lib.CMakeOptionsFor("macos", "")
	assert.Equal(t, "9", opts.Render("SOME_LEVEL", "ON", "OFF"))
	assert.Equal(t, "OFF", opts.Render("ZLIB_BUILD_EXAMPLES", "ON", "OFF"))
	assert.Equal(t, "3", lib.CMakeOptionsFor("linux", "").Render("SOME_LEVEL", "ON", "OFF"))

	assert.Equal(t, "-DMAC", lib.ExtraCFlags("macos"))
	assert.Empty(t, lib.ExtraCFlags("linux"))
	assert.True(t, lib.HandlesCrossCompile("macos", "x86_64"))
	assert.False(t, lib.HandlesCrossCompile("macos", "arm64"))
	assert.False(t, lib.HandlesCrossCompile("linux", "x86_64"))
}

func TestDecodeTOML(t *testing.T) {
	lib, err := Decode(".toml", []byte(libvpxTOML))
	require.NoError(t, err)

	assert.Equal(t, Autotools, lib.BuildSystem)
	assert.Equal(t, MSYS2, lib.EffectiveBuildSystem("windows"))
	assert.Equal(t, Autotools, lib.EffectiveBuildSystem("linux"))
	assert.Equal(t, "repositories/libvpx-win", lib.EffectiveSourceDir("windows"))
	assert.Equal(t, "repositories/libvpx", lib.EffectiveSourceDir("linux"))
	assert.True(t, lib.HasLanguage(CXX))

	on, ok := lib.AutotoolsOptionsFor("linux").Bool("enable_static")
	assert.True(t, ok)
	assert.True(t, on)
	assert.Equal(t, []string{"disable_examples", "enable_static", "target_name"}, lib.AutotoolsOptionsFor("linux").Keys())

	assert.Equal(t, "mt", lib.CMakeOptionsFor("windows", "MT").Render("FOO", "", ""))
	assert.Equal(t, "bar", lib.CMakeOptionsFor("windows", "MD").Render("FOO", "", ""))
}

func TestDefaults(t *testing.T) {
	lib, err := Decode(".yml", []byte("name: expat\n"))
	require.NoError(t, err)
	assert.Equal(t, "repositories/expat", lib.SourceDir)
	assert.Equal(t, CMake, lib.BuildSystem)
	assert.Equal(t, []Language{C}, lib.Languages)
	assert.Empty(t, lib.DependsOn)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		doc  string
		want error
	}{
		{"missing name", ".yaml", "build_system: cmake\n", ErrMissingName},
		{"bad build system", ".yaml", "name: a\nbuild_system: bazel\n", ErrInvalidDescriptor},
		{"bad override build system", ".yaml", "name: a\nplatforms:\n  linux:\n    build_system: scons\n", ErrInvalidDescriptor},
		{"bad language", ".yaml", "name: a\nlanguages: [rust]\n", ErrInvalidDescriptor},
		{"self dependency", ".yaml", "name: a\ndepends_on: [a]\n", ErrInvalidDescriptor},
		{"unsupported format", ".json", "{}", ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.ext, []byte(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zlib.yaml")
	require.NoError(t, os.WriteFile(path, []byte(zlibYAML), 0o644))

	lib, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "zlib", lib.Name)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: [\n"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load bad.yaml")
}

func TestIsDescriptorFile(t *testing.T) {
	for name, want := range map[string]bool{
		"zlib.yaml":         true,
		"zlib.yml":          true,
		"zlib.toml":         true,
		"ZLIB.YAML":         true,
		"_build_order.yaml": false,
		"README.md":         false,
	} {
		if got := IsDescriptorFile(name); got != want {
			t.Errorf("IsDescriptorFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestExpandSourceDir(t *testing.T) {
	lib, err := Decode(".yaml", []byte(zlibYAML))
	require.NoError(t, err)

	got, err := lib.ExpandSourceDir("linux", map[string]string{"ROOT": "/work"})
	require.NoError(t, err)
	assert.Equal(t, "/work/repositories/zlib", got)

	t.Setenv("DEPBUILD_TEST_SRC", "/from/env")
	lib.Platforms["linux"] = PlatformOverride{SourceDir: "${DEPBUILD_TEST_SRC}/zlib"}
	got, err = lib.ExpandSourceDir("linux", nil)
	require.NoError(t, err)
	assert.Equal(t, "/from/env/zlib", got)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{true, "yes"},
		{false, "no"},
		{"str", "str"},
		{42, "42"},
		{int64(7), "7"},
		{uint64(8), "8"},
		{1.5, "1.5"},
		{[]any{"a", 1, true}, "a;1;yes"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in, "yes", "no"); got != tt.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOptionFlag(t *testing.T) {
	if got := OptionFlag("enable_static_msvcrt"); got != "--enable-static-msvcrt" {
		t.Fatalf("OptionFlag() = %q, want %q", got, "--enable-static-msvcrt")
	}
}
