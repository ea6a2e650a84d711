// Package meson drives meson setup, compile and install.
package meson

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/goplus/depbuild/pkgs/buildsys"
)

// Meson wraps common Meson build steps with chainable configuration.
type Meson struct {
	runner         buildsys.Runner
	goos           string
	sourceDir      string
	buildDir       string
	installDir     string
	buildType      string
	defaultLibrary string
	crossFile      string
	options        map[string]string
	env            buildsys.Env
}

var _ buildsys.BuildSystem = (*Meson)(nil)

// New creates a Meson helper. Libraries are built static unless
// DefaultLibrary says otherwise.
func New(runner buildsys.Runner, sourceDir, buildDir, installDir string) *Meson {
	return &Meson{
		runner:         runner,
		goos:           runtime.GOOS,
		sourceDir:      sourceDir,
		buildDir:       buildDir,
		installDir:     installDir,
		defaultLibrary: "static",
		options:        map[string]string{},
		env:            buildsys.Env{},
	}
}

func (m *Meson) Name() string { return "meson" }

// TargetOS sets the GOOS whose path conventions Use follows.
func (m *Meson) TargetOS(goos string) *Meson {
	m.goos = goos
	return m
}

// BuildType sets the meson buildtype, e.g. "release" or "debug".
func (m *Meson) BuildType(name string) *Meson {
	m.buildType = name
	return m
}

// DefaultLibrary sets --default-library: static, shared or both. An empty
// kind leaves the project default.
func (m *Meson) DefaultLibrary(kind string) *Meson {
	m.defaultLibrary = kind
	return m
}

// CrossFile sets the --cross-file passed to setup.
func (m *Meson) CrossFile(path string) *Meson {
	m.crossFile = path
	return m
}

// Option sets a project or built-in option passed as -Dkey=value.
func (m *Meson) Option(key, value string) *Meson {
	m.options[key] = value
	return m
}

func (m *Meson) Env(key, value string) {
	m.env.Set(key, value)
}

// Use exposes a dependency install prefix to dependency() lookups.
func (m *Meson) Use(prefix string) {
	m.env.UsePrefix(m.goos, prefix)
}

// SetupArgs returns the arguments of the meson setup invocation. A build
// directory holding a previous configuration is wiped.
func (m *Meson) SetupArgs(args ...string) []string {
	setup := []string{"setup", m.buildDir, m.sourceDir}
	if m.installDir != "" {
		setup = append(setup, "--prefix="+m.installDir)
	}
	if m.buildType != "" {
		setup = append(setup, "--buildtype="+m.buildType)
	}
	if m.defaultLibrary != "" {
		setup = append(setup, "--default-library="+m.defaultLibrary)
	}
	if m.crossFile != "" {
		setup = append(setup, "--cross-file="+m.crossFile)
	}
	for _, k := range slices.Sorted(maps.Keys(m.options)) {
		setup = append(setup, "-D"+k+"="+m.options[k])
	}
	if fi, err := os.Stat(filepath.Join(m.buildDir, "meson-private")); err == nil && fi.IsDir() {
		setup = append(setup, "--wipe")
	}
	return append(setup, args...)
}

func (m *Meson) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(m.buildDir, 0755); err != nil {
		return err
	}
	return m.run(ctx, m.SetupArgs(args...))
}

func (m *Meson) Build(ctx context.Context, args ...string) error {
	return m.run(ctx, append([]string{"compile", "-C", m.buildDir}, args...))
}

func (m *Meson) Install(ctx context.Context, args ...string) error {
	return m.run(ctx, append([]string{"install", "-C", m.buildDir}, args...))
}

// OutputDir returns the install dir if set, otherwise the build dir.
func (m *Meson) OutputDir() string {
	if m.installDir != "" {
		return m.installDir
	}
	return m.buildDir
}

func (m *Meson) run(ctx context.Context, args []string) error {
	return m.runner.Run(ctx, buildsys.Command{Name: "meson", Args: args, Env: m.env.Clone()})
}
