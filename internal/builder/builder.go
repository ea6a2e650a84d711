// Package builder runs one library through patch, configure, build,
// install, post-install and validation.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/library"
	"github.com/goplus/depbuild/internal/patch"
	"github.com/goplus/depbuild/internal/platform"
	"github.com/goplus/depbuild/pkgs/buildsys"
)

// ErrNoBuilder is returned for a build system without a registered kind.
var ErrNoBuilder = errors.New("no builder for build system")

// State is a step of the pipeline. States only move forward; Failed is
// terminal.
type State int

const (
	Init State = iota
	PatchApplied
	Configured
	Built
	Installed
	PostProcessed
	Validated
	Success
	Failed
)

var stateNames = [...]string{
	Init:          "init",
	PatchApplied:  "patch-applied",
	Configured:    "configured",
	Built:         "built",
	Installed:     "installed",
	PostProcessed: "post-processed",
	Validated:     "validated",
	Success:       "success",
	Failed:        "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StepError reports the step a library failed in.
type StepError struct {
	Library string
	// Reached is the last state completed before the failure.
	Reached State
	Step    string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Library, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Result is the outcome of building one library.
type Result struct {
	Library     string
	BuildSystem library.BuildSystem
	State       State
	Err         error
	Duration    time.Duration
}

// OK reports whether the library was built and validated.
func (r Result) OK() bool {
	return r.State == Success
}

// Job holds the resolved inputs of one library build.
type Job struct {
	Config     *config.Config
	Library    *library.Library
	SourceDir  string
	BuildDir   string
	InstallDir string
}

// Platform returns the platform name of the job.
func (j *Job) Platform() string {
	return j.Config.PlatformName()
}

// Steps is a prepared build system together with the arguments of its
// configure and build invocations.
type Steps struct {
	buildsys.BuildSystem
	ConfigureArgs []string
	BuildArgs     []string
}

// kind adapts one native build tool to the pipeline.
type kind interface {
	Name() library.BuildSystem
	// BuildDir returns the scratch directory of the job.
	BuildDir(cfg *config.Config, lib *library.Library, sourceDir string) string
	// Prepare creates the build system and runs any bootstrap it needs.
	Prepare(ctx context.Context, job *Job) (*Steps, error)
	// AfterInstall fixes up the install tree layout.
	AfterInstall(ctx context.Context, job *Job) error
	// PlatformPostInstall reports whether the platform post-install hook
	// applies to this kind.
	PlatformPostInstall() bool
	// Checks reports whether artifacts of this kind are checked by v.
	Checks(v platform.ArtifactValidator) bool
}

// Options configures a Pipeline.
type Options struct {
	// Jobs is the parallelism passed to the native tool; 0 means its default.
	Jobs int
	// MSYS2Roots overrides the MSYS2 installations searched.
	MSYS2Roots []string
}

// Pipeline builds libraries for one configuration.
type Pipeline struct {
	cfg      *config.Config
	platform platform.Provider
	runner   buildsys.Runner
	patches  *patch.Manager
	kinds    map[library.BuildSystem]kind
}

// New returns a pipeline with the four built-in build systems.
func New(cfg *config.Config, provider platform.Provider, runner buildsys.Runner, opts Options) *Pipeline {
	env := &kindEnv{cfg: cfg, platform: provider, runner: runner, jobs: opts.Jobs}
	roots := opts.MSYS2Roots
	if roots == nil {
		roots = defaultMSYS2Roots()
	}
	p := &Pipeline{
		cfg:      cfg,
		platform: provider,
		runner:   runner,
		patches:  patch.New(runner, cfg.RootDir),
		kinds:    map[library.BuildSystem]kind{},
	}
	for _, k := range []kind{
		&cmakeKind{env},
		&autotoolsKind{env},
		&mesonKind{env},
		&msys2Kind{kindEnv: env, roots: roots},
	} {
		p.kinds[k.Name()] = k
	}
	return p
}

func (p *Pipeline) kindOf(lib *library.Library) (kind, error) {
	bs := lib.EffectiveBuildSystem(p.cfg.PlatformName())
	k, ok := p.kinds[bs]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoBuilder, bs)
	}
	return k, nil
}

// Job resolves the directories of lib without touching the file system.
func (p *Pipeline) Job(lib *library.Library) (*Job, error) {
	k, err := p.kindOf(lib)
	if err != nil {
		return nil, err
	}
	platformName := p.cfg.PlatformName()
	src, err := lib.ExpandSourceDir(platformName, map[string]string{
		"ROOT":       p.cfg.RootDir,
		"PLATFORM":   platformName,
		"ARCH":       p.cfg.Arch,
		"BUILD_TYPE": p.cfg.BuildType,
		"NAME":       lib.Name,
	})
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(src) {
		src = filepath.Join(p.cfg.RootDir, src)
	}
	return &Job{
		Config:     p.cfg,
		Library:    lib,
		SourceDir:  src,
		BuildDir:   k.BuildDir(p.cfg, lib, src),
		InstallDir: p.cfg.OutputDir(),
	}, nil
}

// Run builds lib. It never returns a Result with State Success together
// with a non-nil Err.
func (p *Pipeline) Run(ctx context.Context, lib *library.Library) Result {
	start := time.Now()
	res := Result{
		Library:     lib.Name,
		BuildSystem: lib.EffectiveBuildSystem(p.cfg.PlatformName()),
		State:       Init,
	}
	fail := func(step string, err error) Result {
		res.Err = &StepError{Library: lib.Name, Reached: res.State, Step: step, Err: err}
		res.State = Failed
		res.Duration = time.Since(start)
		slog.Error("build failed", "library", lib.Name, "step", step, "error", err)
		return res
	}

	k, err := p.kindOf(lib)
	if err != nil {
		return fail("select builder", err)
	}
	job, err := p.Job(lib)
	if err != nil {
		return fail("resolve", err)
	}
	log := slog.With("library", lib.Name, "build_system", k.Name())
	log.Info("building", "source", job.SourceDir, "build", job.BuildDir, "install", job.InstallDir)

	for _, dir := range []string{job.BuildDir, job.InstallDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fail("resolve", err)
		}
	}

	outcome, err := p.patches.Apply(ctx, lib.Name, job.SourceDir)
	if err != nil {
		return fail("patch", err)
	}
	log.Debug("patch", "outcome", outcome)
	res.State = PatchApplied

	steps, err := k.Prepare(ctx, job)
	if err != nil {
		return fail("configure", err)
	}
	if err := steps.Configure(ctx, steps.ConfigureArgs...); err != nil {
		return fail("configure", err)
	}
	res.State = Configured

	if err := steps.Build(ctx, steps.BuildArgs...); err != nil {
		return fail("build", err)
	}
	res.State = Built

	if err := steps.Install(ctx); err != nil {
		return fail("install", err)
	}
	res.State = Installed

	caps := p.platform.Capabilities()
	if caps.PostInstall != nil && k.PlatformPostInstall() {
		if err := caps.PostInstall(ctx, p.cfg, lib, job.BuildDir, job.InstallDir); err != nil {
			return fail("post-install", err)
		}
	}
	if err := k.AfterInstall(ctx, job); err != nil {
		return fail("post-install", err)
	}
	res.State = PostProcessed

	// artifacts stay in place on failure so they can be inspected
	for _, v := range caps.Validators {
		if !k.Checks(v) {
			continue
		}
		if err := v.Validate(ctx, p.cfg, job.InstallDir); err != nil {
			return fail("validate", err)
		}
	}
	res.State = Validated

	res.State = Success
	res.Duration = time.Since(start)
	log.Info("built", "duration", res.Duration.Round(time.Millisecond))
	return res
}
