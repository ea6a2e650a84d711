// Package orchestrator selects the libraries of a run and builds them one
// at a time in dependency order, stopping at the first failure.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goplus/depbuild/internal/builder"
	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/library"
	"github.com/goplus/depbuild/internal/metrics"
	"github.com/goplus/depbuild/internal/platform"
	"github.com/goplus/depbuild/internal/registry"
	"github.com/goplus/depbuild/pkgs/buildsys"
)

var (
	// ErrUnknownLibrary is returned when a selected library is not registered.
	ErrUnknownLibrary = errors.New("unknown library")
	// ErrLibraryUnavailable is returned when a selected library is disabled
	// on the target platform.
	ErrLibraryUnavailable = errors.New("library is not available on platform")
	// ErrNothingToBuild is returned when a selection is empty.
	ErrNothingToBuild = errors.New("no libraries to build")
)

// ConfigError carries every problem found in a build configuration.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// BuildFailure reports the library that stopped a run.
type BuildFailure struct {
	Library string
	Err     error
}

func (e *BuildFailure) Error() string {
	return fmt.Sprintf("failed to build %s: %v", e.Library, e.Err)
}

func (e *BuildFailure) Unwrap() error {
	return e.Err
}

// Selection picks the libraries of a run. An empty Library selects every
// library enabled on the platform.
type Selection struct {
	Library string
	// NoDeps builds Library alone, without its dependency closure.
	NoDeps bool
}

// Select resolves sel against reg for the platform of cfg. The result is in
// build order.
func Select(reg *registry.Registry, cfg *config.Config, sel Selection) ([]*library.Library, error) {
	platformName := cfg.PlatformName()
	var (
		libs []*library.Library
		err  error
	)
	switch {
	case sel.Library == "":
		libs, err = reg.BuildOrder(platformName)
	default:
		lib, ok := reg.Get(sel.Library)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownLibrary, sel.Library)
		}
		if !lib.EnabledFor(platformName) {
			return nil, fmt.Errorf("%w: %s on %s", ErrLibraryUnavailable, sel.Library, platformName)
		}
		if sel.NoDeps {
			return []*library.Library{lib}, nil
		}
		libs, err = reg.WithDependencies(sel.Library, platformName)
	}
	if err != nil {
		return nil, err
	}
	if len(libs) == 0 {
		return nil, ErrNothingToBuild
	}
	return libs, nil
}

// Options configures an Orchestrator.
type Options struct {
	// Jobs is passed to the native build tools.
	Jobs int
	// Metrics receives one observation per library built; nil disables it.
	Metrics *metrics.Recorder
	// MSYS2Roots overrides the MSYS2 installations searched.
	MSYS2Roots []string
}

// Orchestrator builds libraries of one registry for one configuration.
type Orchestrator struct {
	reg      *registry.Registry
	cfg      *config.Config
	provider platform.Provider
	pipeline *builder.Pipeline
	metrics  *metrics.Recorder
}

// New returns an Orchestrator running external tools through runner.
func New(reg *registry.Registry, cfg *config.Config, provider platform.Provider, runner buildsys.Runner, opts Options) *Orchestrator {
	return &Orchestrator{
		reg:      reg,
		cfg:      cfg,
		provider: provider,
		pipeline: builder.New(cfg, provider, runner, builder.Options{Jobs: opts.Jobs, MSYS2Roots: opts.MSYS2Roots}),
		metrics:  opts.Metrics,
	}
}

// Select resolves sel for the configured platform.
func (o *Orchestrator) Select(sel Selection) ([]*library.Library, error) {
	return Select(o.reg, o.cfg, sel)
}

// Run builds libs in order. It refuses to start with an invalid
// configuration and stops at the first library that fails; libraries
// installed before the failure are left in place.
func (o *Orchestrator) Run(ctx context.Context, libs []*library.Library) ([]builder.Result, error) {
	if problems := o.cfg.Validate(); len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}

	platformName := o.cfg.PlatformName()
	results := make([]builder.Result, 0, len(libs))
	for _, lib := range libs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if missing := o.reg.MissingDependencies(lib.Name, platformName); len(missing) > 0 {
			slog.Warn("dependencies not built on this platform", "library", lib.Name,
				"platform", platformName, "missing", missing)
		}

		res := o.pipeline.Run(ctx, lib)
		results = append(results, res)
		if o.metrics != nil {
			o.metrics.Observe(lib.Name, string(res.BuildSystem), res.Duration, res.OK())
		}
		if !res.OK() {
			return results, &BuildFailure{Library: lib.Name, Err: res.Err}
		}
	}
	return results, nil
}

// Step is one line of a dry-run plan.
type Step struct {
	Library     string
	BuildSystem library.BuildSystem
	DependsOn   []string
	SourceDir   string
	BuildDir    string
	InstallDir  string
}

// Plan describes what Run would do for libs without running anything.
func (o *Orchestrator) Plan(libs []*library.Library) ([]Step, error) {
	steps := make([]Step, 0, len(libs))
	for _, lib := range libs {
		job, err := o.pipeline.Job(lib)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{
			Library:     lib.Name,
			BuildSystem: lib.EffectiveBuildSystem(o.cfg.PlatformName()),
			DependsOn:   lib.DependsOn,
			SourceDir:   job.SourceDir,
			BuildDir:    job.BuildDir,
			InstallDir:  job.InstallDir,
		})
	}
	return steps, nil
}

// Clean empties the workspace of the orchestrator and resets the caches of
// its platform provider.
func (o *Orchestrator) Clean() ([]string, error) {
	return Clean(o.cfg.RootDir, o.provider)
}
