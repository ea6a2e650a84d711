package builder

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/library"
	"github.com/goplus/depbuild/internal/platform"
	"github.com/goplus/depbuild/pkgs/buildsys/autotools"
)

type autotoolsKind struct {
	*kindEnv
}

func (k *autotoolsKind) Name() library.BuildSystem { return library.Autotools }

// BuildDir is kept inside the source tree; configure scripts of several
// libraries assume it.
func (k *autotoolsKind) BuildDir(cfg *config.Config, _ *library.Library, sourceDir string) string {
	return filepath.Join(sourceDir, fmt.Sprintf("build-%s-%s", cfg.Arch, cfg.BuildType))
}

func (k *autotoolsKind) Prepare(ctx context.Context, job *Job) (*Steps, error) {
	cfg, lib := k.cfg, job.Library
	platformName := job.Platform()
	handlesCross := lib.HandlesCrossCompile(platformName, cfg.Arch)

	a := autotools.New(k.runner, job.SourceDir, job.BuildDir, job.InstallDir).
		TargetOS(k.goos()).
		Jobs(k.jobs)

	if a.HasAutogen() {
		if err := a.Autogen(ctx); err != nil {
			return nil, fmt.Errorf("autogen: %w", err)
		}
	}

	flags := []string{"-fPIC"}
	if k.isMacOS() {
		if !handlesCross {
			flags = append(flags, "-arch", cfg.Arch)
		}
		if cfg.MacOSDeploymentTarget != "" {
			flags = append(flags, "-mmacosx-version-min="+cfg.MacOSDeploymentTarget)
		}
	}
	if cfg.IsDebug() {
		flags = append(flags, "-g3", "-O0")
	} else {
		flags = append(flags, "-O2")
	}
	base := joinFlags(flags...)
	a.AppendFlag("CFLAGS", joinFlags(base, lib.ExtraCFlags(platformName)))
	a.AppendFlag("CXXFLAGS", joinFlags(base, lib.ExtraCXXFlags(platformName)))
	if k.isMacOS() && !handlesCross {
		a.AppendFlag("LDFLAGS", "-arch "+cfg.Arch)
	}
	useDeps(a, job)

	var args []string
	if k.isMacOS() && cfg.IsCrossCompiling() {
		if target := lib.CrossTarget(platformName, cfg.Arch); target != "" {
			args = append(args, "--target="+target)
		} else {
			args = append(args,
				"--build="+cfg.Host()+"-apple-darwin",
				"--host="+cfg.Arch+"-apple-darwin")
		}
	}
	args = append(args, configureOptions(lib.AutotoolsOptionsFor(platformName))...)
	return &Steps{BuildSystem: a, ConfigureArgs: args}, nil
}

func (k *autotoolsKind) AfterInstall(context.Context, *Job) error { return nil }

func (k *autotoolsKind) PlatformPostInstall() bool { return false }

// Checks limits autotools builds to the architecture check.
func (k *autotoolsKind) Checks(v platform.ArtifactValidator) bool {
	_, ok := v.(*platform.ArchValidator)
	return ok
}
