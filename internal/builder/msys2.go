package builder

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/library"
	"github.com/goplus/depbuild/internal/platform"
	"github.com/goplus/depbuild/pkgs/buildsys/msys2"
)

type msys2Kind struct {
	*kindEnv
	roots []string
}

func (k *msys2Kind) Name() library.BuildSystem { return library.MSYS2 }

func (k *msys2Kind) BuildDir(cfg *config.Config, lib *library.Library, _ string) string {
	return cfg.LibraryBuildDir(lib.Name)
}

// MSVCTarget returns the configure --target of projects built with MSVC
// through MSYS2.
func MSVCTarget(arch string) string {
	if arch == config.ArchARM64 {
		return "arm64-win64-vs17"
	}
	return "x86_64-win64-vs17"
}

func (k *msys2Kind) Prepare(ctx context.Context, job *Job) (*Steps, error) {
	cfg, lib := k.cfg, job.Library

	bash, err := msys2.FindBash(k.roots)
	if err != nil {
		return nil, err
	}
	m := msys2.New(k.runner, bash, job.SourceDir, job.BuildDir, job.InstallDir).
		Target(MSVCTarget(cfg.Arch)).
		Jobs(k.jobs)

	// the generated makefiles call MSBuild by name
	if loc := k.platform.Capabilities().Tools["msbuild"]; loc != nil {
		if exe, err := loc.Locate(ctx); err == nil {
			m.PrependPath(filepath.Dir(exe))
		} else {
			slog.Warn("MSBuild not found, relying on PATH", "library", lib.Name, "error", err)
		}
	}
	useDeps(m, job)

	var args []string
	if cfg.RuntimeLib == config.RuntimeMT {
		args = append(args, "--enable-static-msvcrt")
	}
	args = append(args, configureOptions(lib.AutotoolsOptionsFor(job.Platform()))...)
	return &Steps{BuildSystem: m, ConfigureArgs: args}, nil
}

func (k *msys2Kind) AfterInstall(_ context.Context, job *Job) error {
	moved, err := msys2.FlattenLibDir(job.InstallDir)
	if len(moved) > 0 {
		slog.Info("flattened lib dir", "library", job.Library.Name, "files", moved)
	}
	return err
}

func (k *msys2Kind) PlatformPostInstall() bool { return false }

// Checks limits MSYS2 builds to the CRT linkage check.
func (k *msys2Kind) Checks(v platform.ArtifactValidator) bool {
	_, ok := v.(*platform.CRTValidator)
	return ok
}
