// Package cmake drives the configure, build and install steps of a CMake
// project.
package cmake

import (
	"context"
	"maps"
	"os"
	"runtime"
	"slices"

	"github.com/goplus/depbuild/pkgs/buildsys"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake wraps common CMake build steps with chainable configuration.
type CMake struct {
	runner     buildsys.Runner
	goos       string
	sourceDir  string
	buildDir   string
	installDir string
	generator  string
	arch       string
	buildType  string
	defines    map[string]defineValue
	env        buildsys.Env
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New creates a CMake helper building sourceDir out of tree in buildDir and
// installing into installDir.
func New(runner buildsys.Runner, sourceDir, buildDir, installDir string) *CMake {
	return &CMake{
		runner:     runner,
		goos:       runtime.GOOS,
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		defines:    map[string]defineValue{},
		env:        buildsys.Env{},
	}
}

func (c *CMake) Name() string { return "cmake" }

// TargetOS sets the GOOS whose path conventions Use follows.
func (c *CMake) TargetOS(goos string) *CMake {
	c.goos = goos
	return c
}

func (c *CMake) Generator(name string) *CMake {
	c.generator = name
	return c
}

// Arch sets the generator platform passed with -A.
func (c *CMake) Arch(name string) *CMake {
	c.arch = name
	return c
}

func (c *CMake) BuildType(name string) *CMake {
	c.buildType = name
	return c
}

func (c *CMake) Define(key, value string) *CMake {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
	return c
}

func (c *CMake) DefinePath(key, value string) *CMake {
	c.defines[key] = defineValue{value: value, typeName: "PATH"}
	return c
}

func (c *CMake) DefineBool(key string, value bool) *CMake {
	if value {
		c.defines[key] = defineValue{value: "ON", typeName: "BOOL"}
		return c
	}
	c.defines[key] = defineValue{value: "OFF", typeName: "BOOL"}
	return c
}

func (c *CMake) Env(key, value string) {
	c.env.Set(key, value)
}

// Use exposes a dependency install prefix to the configure step.
func (c *CMake) Use(prefix string) {
	c.env.UsePrefix(c.goos, prefix)
}

// ConfigureArgs returns the arguments of the configure invocation.
func (c *CMake) ConfigureArgs(args ...string) []string {
	cmakeArgs := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.arch != "" {
		cmakeArgs = append(cmakeArgs, "-A", c.arch)
	}

	defines := maps.Clone(c.defines)
	if c.installDir != "" {
		defines["CMAKE_INSTALL_PREFIX"] = defineValue{value: c.installDir, typeName: "PATH"}
	}
	if c.buildType != "" {
		defines["CMAKE_BUILD_TYPE"] = defineValue{value: c.buildType, typeName: "STRING"}
	}
	cmakeArgs = append(cmakeArgs, definesArgs(defines)...)
	return append(cmakeArgs, args...)
}

func (c *CMake) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0755); err != nil {
		return err
	}
	return c.run(ctx, c.ConfigureArgs(args...))
}

func (c *CMake) Build(ctx context.Context, args ...string) error {
	cmdArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmdArgs = append(cmdArgs, "--config", c.buildType)
	}
	return c.run(ctx, append(cmdArgs, args...))
}

func (c *CMake) Install(ctx context.Context, args ...string) error {
	cmdArgs := []string{"--install", c.buildDir}
	if c.buildType != "" {
		cmdArgs = append(cmdArgs, "--config", c.buildType)
	}
	if c.installDir != "" {
		cmdArgs = append(cmdArgs, "--prefix", c.installDir)
	}
	return c.run(ctx, append(cmdArgs, args...))
}

// OutputDir returns the install dir if set, otherwise the build dir.
func (c *CMake) OutputDir() string {
	if c.installDir != "" {
		return c.installDir
	}
	return c.buildDir
}

func (c *CMake) run(ctx context.Context, args []string) error {
	return c.runner.Run(ctx, buildsys.Command{Name: "cmake", Args: args, Env: c.env.Clone()})
}

func definesArgs(defines map[string]defineValue) []string {
	keys := slices.Sorted(maps.Keys(defines))
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		def := defines[k]
		if def.typeName != "" {
			args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
			continue
		}
		args = append(args, "-D"+k+"="+def.value)
	}
	return args
}
