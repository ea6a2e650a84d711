// Package autotools drives configure and make.
package autotools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/goplus/depbuild/pkgs/buildsys"
)

// AutoTools wraps common Autotools build steps with chainable configuration.
type AutoTools struct {
	runner     buildsys.Runner
	goos       string
	sourceDir  string
	buildDir   string
	installDir string
	jobs       int
	env        buildsys.Env
}

var _ buildsys.BuildSystem = (*AutoTools)(nil)

// New creates an AutoTools helper configuring sourceDir from buildDir and
// installing into installDir.
func New(runner buildsys.Runner, sourceDir, buildDir, installDir string) *AutoTools {
	return &AutoTools{
		runner:     runner,
		goos:       runtime.GOOS,
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		env:        buildsys.Env{},
	}
}

func (a *AutoTools) Name() string { return "autotools" }

// TargetOS sets the GOOS whose path conventions Use follows.
func (a *AutoTools) TargetOS(goos string) *AutoTools {
	a.goos = goos
	return a
}

// Jobs sets the make parallelism. Zero lets make run unbounded jobs.
func (a *AutoTools) Jobs(n int) *AutoTools {
	a.jobs = n
	return a
}

func (a *AutoTools) Env(key, value string) {
	a.env.Set(key, value)
}

// AppendFlag appends a compiler or linker flag to a variable such as CFLAGS.
func (a *AutoTools) AppendFlag(key, flag string) {
	a.env.AppendFlag(key, flag)
}

// Use exposes a dependency install prefix to configure.
func (a *AutoTools) Use(prefix string) {
	a.env.UsePrefix(a.goos, prefix)
}

// HasAutogen reports whether the source tree must be bootstrapped first.
func (a *AutoTools) HasAutogen() bool {
	_, err := os.Stat(filepath.Join(a.sourceDir, "autogen.sh"))
	return err == nil
}

// Autogen runs autogen.sh with bash in the source directory.
func (a *AutoTools) Autogen(ctx context.Context) error {
	return a.runner.Run(ctx, buildsys.Command{
		Name: "bash",
		Args: []string{"autogen.sh"},
		Dir:  a.sourceDir,
		Env:  a.env.Clone(),
	})
}

// ConfigureArgs returns the arguments passed to the configure script.
func (a *AutoTools) ConfigureArgs(args ...string) []string {
	var configArgs []string
	if a.installDir != "" {
		configArgs = append(configArgs, "--prefix="+a.installDir)
	}
	return append(configArgs, args...)
}

// Configure runs <source>/configure from the build directory.
func (a *AutoTools) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(a.buildDir, 0755); err != nil {
		return err
	}
	exe, err := filepath.Abs(filepath.Join(a.sourceDir, "configure"))
	if err != nil {
		return err
	}
	return a.run(ctx, exe, a.ConfigureArgs(args...))
}

// Build runs make in the build directory.
func (a *AutoTools) Build(ctx context.Context, args ...string) error {
	jobs := "-j"
	if a.jobs > 0 {
		jobs += strconv.Itoa(a.jobs)
	}
	return a.run(ctx, "make", append([]string{jobs}, args...))
}

// Install runs make install in the build directory.
func (a *AutoTools) Install(ctx context.Context, args ...string) error {
	return a.run(ctx, "make", append([]string{"install"}, args...))
}

// OutputDir returns the install dir if set, otherwise the build dir.
func (a *AutoTools) OutputDir() string {
	if a.installDir != "" {
		return a.installDir
	}
	return a.buildDir
}

func (a *AutoTools) run(ctx context.Context, bin string, args []string) error {
	return a.runner.Run(ctx, buildsys.Command{
		Name: bin,
		Args: args,
		Dir:  a.buildDir,
		Env:  a.env.Clone(),
	})
}
