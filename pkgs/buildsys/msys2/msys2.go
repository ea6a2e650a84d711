// Package msys2 runs configure and make through an MSYS2 login shell.
// It serves projects whose own configure script targets MSVC, where the
// generated makefiles invoke MSBuild.
package msys2

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/goplus/depbuild/pkgs/buildsys"
)

// ErrBashNotFound is returned when no MSYS2 installation is found.
var ErrBashNotFound = errors.New("msys2: bash.exe not found; install MSYS2 from https://www.msys2.org/ or set MSYS2_PATH")

// DefaultRoots are the install locations searched after MSYS2_PATH.
var DefaultRoots = []string{"C:/msys64", "C:/msys32"}

// FindBash returns the bash.exe of the MSYS2 installation named by
// MSYS2_PATH, or of the first of roots that has one.
func FindBash(roots []string) (string, error) {
	if root := os.Getenv("MSYS2_PATH"); root != "" {
		roots = append([]string{root}, roots...)
	}
	for _, root := range roots {
		bash := filepath.Join(root, "usr", "bin", "bash.exe")
		if _, err := os.Stat(bash); err == nil {
			return bash, nil
		}
	}
	return "", ErrBashNotFound
}

// ToMSYSPath converts a Windows path to MSYS2 form, C:\foo\bar becoming
// /c/foo/bar. Other paths only get forward slashes.
func ToMSYSPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if len(p) >= 2 && p[1] == ':' {
		p = "/" + strings.ToLower(p[:1]) + p[2:]
	}
	return p
}

// MSYS2 wraps configure/make invoked through bash -lc.
type MSYS2 struct {
	runner     buildsys.Runner
	bash       string
	sourceDir  string
	buildDir   string
	installDir string
	target     string
	paths      []string
	jobs       int
	env        buildsys.Env
}

var _ buildsys.BuildSystem = (*MSYS2)(nil)

// New creates an MSYS2 helper using the given bash.exe.
func New(runner buildsys.Runner, bash, sourceDir, buildDir, installDir string) *MSYS2 {
	return &MSYS2{
		runner:     runner,
		bash:       bash,
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		env:        buildsys.Env{"MSYSTEM": "MSYS"},
	}
}

func (m *MSYS2) Name() string { return "msys2" }

// Target sets the configure --target, e.g. x86_64-win64-vs17.
func (m *MSYS2) Target(target string) *MSYS2 {
	m.target = target
	return m
}

// PrependPath puts a Windows directory in front of the login shell's PATH.
func (m *MSYS2) PrependPath(dir string) *MSYS2 {
	m.paths = append(m.paths, ToMSYSPath(dir))
	return m
}

// Jobs sets the make parallelism. Zero lets make run unbounded jobs.
func (m *MSYS2) Jobs(n int) *MSYS2 {
	m.jobs = n
	return m
}

func (m *MSYS2) Env(key, value string) {
	m.env.Set(key, value)
}

// Use exposes a dependency install prefix to the MSVC toolchain.
func (m *MSYS2) Use(prefix string) {
	m.env.UsePrefix("windows", prefix)
}

// Script returns the bash script running argv with the extra PATH entries.
func (m *MSYS2) Script(argv ...string) (string, error) {
	words := make([]string, 0, len(argv))
	for _, arg := range argv {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			return "", fmt.Errorf("msys2: quote %q: %w", arg, err)
		}
		words = append(words, q)
	}
	script := strings.Join(words, " ")
	if len(m.paths) == 0 {
		return script, nil
	}
	prefix, err := syntax.Quote(strings.Join(m.paths, ":"), syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("msys2: quote PATH: %w", err)
	}
	return "export PATH=" + prefix + `:"$PATH"; ` + script, nil
}

// ConfigureArgs returns the configure command line as seen by bash.
func (m *MSYS2) ConfigureArgs(args ...string) []string {
	argv := []string{ToMSYSPath(filepath.Join(m.sourceDir, "configure"))}
	if m.target != "" {
		argv = append(argv, "--target="+m.target)
	}
	if m.installDir != "" {
		argv = append(argv, "--prefix="+ToMSYSPath(m.installDir))
	}
	return append(argv, args...)
}

func (m *MSYS2) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(m.buildDir, 0755); err != nil {
		return err
	}
	return m.run(ctx, m.ConfigureArgs(args...))
}

func (m *MSYS2) Build(ctx context.Context, args ...string) error {
	jobs := "-j"
	if m.jobs > 0 {
		jobs += strconv.Itoa(m.jobs)
	}
	return m.run(ctx, append([]string{"make", jobs}, args...))
}

func (m *MSYS2) Install(ctx context.Context, args ...string) error {
	return m.run(ctx, append([]string{"make", "install"}, args...))
}

// OutputDir returns the install dir if set, otherwise the build dir.
func (m *MSYS2) OutputDir() string {
	if m.installDir != "" {
		return m.installDir
	}
	return m.buildDir
}

func (m *MSYS2) run(ctx context.Context, argv []string) error {
	script, err := m.Script(argv...)
	if err != nil {
		return err
	}
	return m.runner.Run(ctx, buildsys.Command{
		Name: m.bash,
		Args: []string{"-lc", script},
		Dir:  m.buildDir,
		Env:  m.env.Clone(),
	})
}

// PlatformLibDirs are the per-platform subdirectories some MSVC makefiles
// install libraries into.
var PlatformLibDirs = []string{"x64", "x86", "arm64", "Win32"}

// FlattenLibDir moves the contents of <installDir>/lib/<platform> up into
// <installDir>/lib, replacing files of the same name. It returns the moved
// entries relative to lib.
func FlattenLibDir(installDir string) ([]string, error) {
	libDir := filepath.Join(installDir, "lib")
	var moved []string
	for _, name := range PlatformLibDirs {
		subdir := filepath.Join(libDir, name)
		entries, err := os.ReadDir(subdir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return moved, err
		}
		for _, e := range entries {
			dest := filepath.Join(libDir, e.Name())
			if err := os.RemoveAll(dest); err != nil {
				return moved, err
			}
			if err := os.Rename(filepath.Join(subdir, e.Name()), dest); err != nil {
				return moved, err
			}
			moved = append(moved, name+"/"+e.Name())
		}
		// ignore: a leftover directory does not affect consumers
		_ = os.Remove(subdir)
	}
	return moved, nil
}
