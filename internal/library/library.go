// Package library describes how a single external native library is
// obtained, configured and installed.
package library

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"mvdan.cc/sh/v3/shell"
)

// BuildSystem names the native build tool used to build a library.
type BuildSystem string

const (
	CMake     BuildSystem = "cmake"
	Autotools BuildSystem = "autotools"
	Meson     BuildSystem = "meson"
	MSYS2     BuildSystem = "msys2"
)

// Valid reports whether b is one of the built-in build systems.
func (b BuildSystem) Valid() bool {
	switch b {
	case CMake, Autotools, Meson, MSYS2:
		return true
	}
	return false
}

// Language is a source language a library compiles.
type Language string

const (
	C   Language = "c"
	CXX Language = "cxx"
)

var (
	// ErrMissingName is returned when a descriptor has no name.
	ErrMissingName = errors.New("library: missing name")
	// ErrInvalidDescriptor is returned when a descriptor field holds an unsupported value.
	ErrInvalidDescriptor = errors.New("library: invalid descriptor")
)

// Options maps build-system option names to scalar values.
// Values are strings, booleans or numbers as decoded from the descriptor.
type Options map[string]any

// PlatformOverride holds the per-OS settings of a descriptor. Every field is
// optional; set fields take precedence over the base descriptor.
type PlatformOverride struct {
	SourceDir           string            `yaml:"source_dir" toml:"source_dir"`
	BuildSystem         BuildSystem       `yaml:"build_system" toml:"build_system"`
	CMakeOptions        Options           `yaml:"cmake_options" toml:"cmake_options"`
	AutotoolsOptions    Options           `yaml:"autotools_options" toml:"autotools_options"`
	MesonOptions        Options           `yaml:"meson_options" toml:"meson_options"`
	ExtraCFlags         string            `yaml:"extra_c_flags" toml:"extra_c_flags"`
	ExtraCXXFlags       string            `yaml:"extra_cxx_flags" toml:"extra_cxx_flags"`
	CrossCompileTargets map[string]string `yaml:"cross_compile_targets" toml:"cross_compile_targets"`

	// Windows runtime specific CMake options, merged after CMakeOptions.
	RuntimeMD Options `yaml:"runtime_MD" toml:"runtime_MD"`
	RuntimeMT Options `yaml:"runtime_MT" toml:"runtime_MT"`
}

// Library is the build metadata of one external dependency.
//
// A Library is built once when the registry is loaded and must not be
// modified afterwards. Accessors return fresh maps and slices.
type Library struct {
	Name                       string                      `yaml:"name" toml:"name"`
	SourceDir                  string                      `yaml:"source_dir" toml:"source_dir"`
	BuildSystem                BuildSystem                 `yaml:"build_system" toml:"build_system"`
	DependsOn                  []string                    `yaml:"depends_on" toml:"depends_on"`
	Languages                  []Language                  `yaml:"languages" toml:"languages"`
	CMakeOptions               Options                     `yaml:"cmake_options" toml:"cmake_options"`
	AutotoolsOptions           Options                     `yaml:"autotools_options" toml:"autotools_options"`
	MesonOptions               Options                     `yaml:"meson_options" toml:"meson_options"`
	UseInstallPrefixAsFindRoot bool                        `yaml:"use_install_prefix_as_find_root" toml:"use_install_prefix_as_find_root"`
	DisabledPlatforms          []string                    `yaml:"disabled_platforms" toml:"disabled_platforms"`
	Platforms                  map[string]PlatformOverride `yaml:"platforms" toml:"platforms"`
}

// normalize fills defaults and checks field values.
func (l *Library) normalize() error {
	if l.Name == "" {
		return ErrMissingName
	}
	if l.SourceDir == "" {
		l.SourceDir = "repositories/" + l.Name
	}
	if l.BuildSystem == "" {
		l.BuildSystem = CMake
	}
	if !l.BuildSystem.Valid() {
		return fmt.Errorf("%w: %s: unknown build_system %q", ErrInvalidDescriptor, l.Name, l.BuildSystem)
	}
	for name, p := range l.Platforms {
		if p.BuildSystem != "" && !p.BuildSystem.Valid() {
			return fmt.Errorf("%w: %s: unknown build_system %q for %s", ErrInvalidDescriptor, l.Name, p.BuildSystem, name)
		}
	}
	if len(l.Languages) == 0 {
		l.Languages = []Language{C}
	}
	for _, lang := range l.Languages {
		if lang != C && lang != CXX {
			return fmt.Errorf("%w: %s: unknown language %q", ErrInvalidDescriptor, l.Name, lang)
		}
	}

	// depends_on is an ordered set.
	deps := make([]string, 0, len(l.DependsOn))
	for _, dep := range l.DependsOn {
		if dep == l.Name {
			return fmt.Errorf("%w: %s depends on itself", ErrInvalidDescriptor, l.Name)
		}
		if !slices.Contains(deps, dep) {
			deps = append(deps, dep)
		}
	}
	l.DependsOn = deps
	return nil
}

func (l *Library) override(platform string) (PlatformOverride, bool) {
	p, ok := l.Platforms[platform]
	return p, ok
}

// EnabledFor reports whether the library is built on platform.
func (l *Library) EnabledFor(platform string) bool {
	return !slices.Contains(l.DisabledPlatforms, platform)
}

// HasLanguage reports whether the library compiles sources of lang.
func (l *Library) HasLanguage(lang Language) bool {
	return slices.Contains(l.Languages, lang)
}

// EffectiveSourceDir returns the source path template for platform.
func (l *Library) EffectiveSourceDir(platform string) string {
	if p, ok := l.override(platform); ok && p.SourceDir != "" {
		return p.SourceDir
	}
	return l.SourceDir
}

// EffectiveBuildSystem returns the build system used on platform.
func (l *Library) EffectiveBuildSystem(platform string) BuildSystem {
	if p, ok := l.override(platform); ok && p.BuildSystem != "" {
		return p.BuildSystem
	}
	return l.BuildSystem
}

// CMakeOptionsFor merges base, platform and (on Windows) runtime specific
// CMake options. Later layers win on key collisions.
func (l *Library) CMakeOptionsFor(platform, runtimeLib string) Options {
	opts := merge(l.CMakeOptions, nil)
	p, ok := l.override(platform)
	if !ok {
		return opts
	}
	opts = merge(opts, p.CMakeOptions)
	if platform == "windows" {
		switch runtimeLib {
		case "MD":
			opts = merge(opts, p.RuntimeMD)
		case "MT":
			opts = merge(opts, p.RuntimeMT)
		}
	}
	return opts
}

// AutotoolsOptionsFor returns configure options with platform overrides applied.
func (l *Library) AutotoolsOptionsFor(platform string) Options {
	p, _ := l.override(platform)
	return merge(l.AutotoolsOptions, p.AutotoolsOptions)
}

// MesonOptionsFor returns meson options with platform overrides applied.
func (l *Library) MesonOptionsFor(platform string) Options {
	p, _ := l.override(platform)
	return merge(l.MesonOptions, p.MesonOptions)
}

// ExtraCFlags returns C flags appended to the platform defaults.
func (l *Library) ExtraCFlags(platform string) string {
	p, _ := l.override(platform)
	return p.ExtraCFlags
}

// ExtraCXXFlags returns C++ flags appended to the platform defaults.
func (l *Library) ExtraCXXFlags(platform string) string {
	p, _ := l.override(platform)
	return p.ExtraCXXFlags
}

// CrossTarget returns the library's own cross-compile triplet for arch.
func (l *Library) CrossTarget(platform, arch string) string {
	p, _ := l.override(platform)
	return p.CrossCompileTargets[arch]
}

// HandlesCrossCompile reports whether the library's build system manages
// the target architecture itself. Builders must not inject -arch flags or
// triplets of their own for such libraries.
func (l *Library) HandlesCrossCompile(platform, arch string) bool {
	return l.CrossTarget(platform, arch) != ""
}

// ExpandSourceDir expands ${VAR} references in the platform's source path.
// vars are consulted first, then the process environment.
func (l *Library) ExpandSourceDir(platform string, vars map[string]string) (string, error) {
	src := l.EffectiveSourceDir(platform)
	expanded, err := shell.Expand(src, func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		return os.Getenv(name)
	})
	if err != nil {
		return "", fmt.Errorf("expand source_dir of %s: %w", l.Name, err)
	}
	return expanded, nil
}

func merge(base, over Options) Options {
	out := make(Options, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}
