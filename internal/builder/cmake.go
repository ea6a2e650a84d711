package builder

import (
	"context"
	"strconv"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/library"
	"github.com/goplus/depbuild/internal/platform"
	"github.com/goplus/depbuild/pkgs/buildsys/cmake"
)

// osxArchitectures is left to libraries that manage cross-compilation.
const osxArchitectures = "CMAKE_OSX_ARCHITECTURES"

type cmakeKind struct {
	*kindEnv
}

func (k *cmakeKind) Name() library.BuildSystem { return library.CMake }

func (k *cmakeKind) BuildDir(cfg *config.Config, lib *library.Library, _ string) string {
	return cfg.LibraryBuildDir(lib.Name)
}

func (k *cmakeKind) Prepare(_ context.Context, job *Job) (*Steps, error) {
	cfg, lib, p := k.cfg, job.Library, k.platform
	platformName := job.Platform()
	handlesCross := lib.HandlesCrossCompile(platformName, cfg.Arch)

	c := cmake.New(k.runner, job.SourceDir, job.BuildDir, job.InstallDir).
		TargetOS(k.goos()).
		Generator(p.Generator()).
		Arch(p.ArchitectureArg(cfg)).
		BuildType(cfg.BuildType)

	for key, value := range p.CMakeOptions(cfg) {
		if handlesCross && key == osxArchitectures {
			continue
		}
		c.Define(key, value)
	}

	configFlags := p.Capabilities().ConfigFlags
	for _, lang := range []struct {
		lang  library.Language
		name  string
		base  string
		extra string
	}{
		{library.C, "C", p.CFlags(cfg), lib.ExtraCFlags(platformName)},
		{library.CXX, "CXX", p.CXXFlags(cfg), lib.ExtraCXXFlags(platformName)},
	} {
		if !lib.HasLanguage(lang.lang) {
			continue
		}
		if flags := joinFlags(lang.base, lang.extra); flags != "" {
			c.Define("CMAKE_"+lang.name+"_FLAGS", flags)
		}
		if configFlags == nil {
			continue
		}
		for key, value := range configFlags(cfg, lang.lang) {
			c.Define(key, joinFlags(value, lang.extra))
		}
	}

	if lib.UseInstallPrefixAsFindRoot {
		c.DefinePath("CMAKE_FIND_ROOT_PATH", job.InstallDir)
	}
	if len(lib.DependsOn) > 0 {
		c.DefinePath("CMAKE_PREFIX_PATH", job.InstallDir)
	}
	useDeps(c, job)

	opts := lib.CMakeOptionsFor(platformName, cfg.RuntimeLib)
	for _, key := range opts.Keys() {
		if b, ok := opts.Bool(key); ok {
			c.DefineBool(key, b)
			continue
		}
		c.Define(key, opts.Render(key, "ON", "OFF"))
	}

	steps := &Steps{BuildSystem: c}
	if k.jobs > 0 {
		steps.BuildArgs = []string{"--parallel", strconv.Itoa(k.jobs)}
	}
	return steps, nil
}

func (k *cmakeKind) AfterInstall(context.Context, *Job) error { return nil }

func (k *cmakeKind) PlatformPostInstall() bool { return true }

func (k *cmakeKind) Checks(platform.ArtifactValidator) bool { return true }
