// Package platform supplies the per-OS knowledge builders need: CMake
// generator and options, compiler flags, post-install hooks and artifact
// validation.
package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/library"
	"github.com/goplus/depbuild/pkgs/buildsys"
)

// ErrUnsupportedPlatform is returned by New for unknown platform names.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Provider is the OS-specific strategy used by every builder.
type Provider interface {
	Name() string
	// Generator is the CMake generator.
	Generator() string
	// ArchitectureArg is the value of CMake's -A, or "" when the generator
	// takes none.
	ArchitectureArg(cfg *config.Config) string
	CMakeOptions(cfg *config.Config) map[string]string
	CFlags(cfg *config.Config) string
	CXXFlags(cfg *config.Config) string
	// Capabilities returns the optional behaviors of the platform. The
	// value is fixed at construction.
	Capabilities() Capabilities
	// Reset clears cached validation results and located tool paths.
	Reset()
}

// ConfigFlagsFunc returns the per-configuration flag variables of lang for
// multi-config generators, e.g. CMAKE_C_FLAGS_DEBUG.
type ConfigFlagsFunc func(cfg *config.Config, lang library.Language) map[string]string

// PostInstallFunc runs after a successful install.
type PostInstallFunc func(ctx context.Context, cfg *config.Config, lib *library.Library, buildDir, installDir string) error

// ArtifactValidator checks the artifacts of an install directory.
type ArtifactValidator interface {
	Name() string
	Validate(ctx context.Context, cfg *config.Config, installDir string) error
}

// Capabilities are the optional parts of a Provider. Nil and empty fields
// mean the platform has no such behavior.
type Capabilities struct {
	ConfigFlags ConfigFlagsFunc
	PostInstall PostInstallFunc
	Validators  []ArtifactValidator
	Tools       map[string]*Locator
}

// New returns the provider of the named platform. runner executes the
// inspection and discovery tools.
func New(name string, runner buildsys.Runner) (Provider, error) {
	switch name {
	case config.Linux:
		return NewLinux(), nil
	case config.MacOS:
		return NewMacOS(runner), nil
	case config.Windows:
		return NewWindows(runner), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, name)
}

// ArtifactError describes one artifact that failed validation.
type ArtifactError struct {
	File     string
	Found    []string
	Expected string
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s: found %s (expected only %s)", e.File, strings.Join(e.Found, ", "), e.Expected)
}

// ValidationError collects the artifacts rejected by one validator.
type ValidationError struct {
	Validator string
	Problems  []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("%s validation failed: %s", e.Validator, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// resetter is implemented by the caches owned by a provider.
type resetter interface {
	Reset()
}

// owned tracks the caches of a provider so Reset can clear all of them.
type owned []resetter

func (o owned) Reset() {
	for _, r := range o {
		r.Reset()
	}
}
