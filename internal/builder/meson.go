package builder

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/library"
	"github.com/goplus/depbuild/internal/platform"
	"github.com/goplus/depbuild/pkgs/buildsys/meson"
)

// defaultCrossMinVersion is used in cross files when no deployment target
// is configured.
const defaultCrossMinVersion = "12.0"

type mesonKind struct {
	*kindEnv
}

func (k *mesonKind) Name() library.BuildSystem { return library.Meson }

func (k *mesonKind) BuildDir(cfg *config.Config, lib *library.Library, _ string) string {
	return cfg.LibraryBuildDir(lib.Name)
}

// CrossFilePath returns where the meson cross file of lib is written.
func CrossFilePath(cfg *config.Config, lib *library.Library) string {
	return filepath.Join(cfg.BuildsDir(), lib.Name+"_meson_cross.ini")
}

func (k *mesonKind) Prepare(_ context.Context, job *Job) (*Steps, error) {
	cfg, lib := k.cfg, job.Library
	platformName := job.Platform()

	buildType := "release"
	if cfg.IsDebug() {
		buildType = "debug"
	}
	m := meson.New(k.runner, job.SourceDir, job.BuildDir, job.InstallDir).
		TargetOS(k.goos()).
		BuildType(buildType).
		DefaultLibrary("static")

	if k.isMacOS() && cfg.IsCrossCompiling() && !lib.HandlesCrossCompile(platformName, cfg.Arch) {
		minVersion := cfg.MacOSDeploymentTarget
		if minVersion == "" {
			minVersion = defaultCrossMinVersion
		}
		path := CrossFilePath(cfg, lib)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := meson.DarwinCrossFile(cfg.Arch, minVersion).WriteFile(path); err != nil {
			return nil, err
		}
		m.CrossFile(path)
	}

	if flags := lib.ExtraCFlags(platformName); flags != "" {
		m.Env("CFLAGS", flags)
	}
	if flags := lib.ExtraCXXFlags(platformName); flags != "" {
		m.Env("CXXFLAGS", flags)
	}
	useDeps(m, job)

	opts := lib.MesonOptionsFor(platformName)
	for _, key := range opts.Keys() {
		m.Option(key, opts.Render(key, "true", "false"))
	}
	return &Steps{BuildSystem: m}, nil
}

func (k *mesonKind) AfterInstall(context.Context, *Job) error { return nil }

func (k *mesonKind) PlatformPostInstall() bool { return true }

func (k *mesonKind) Checks(platform.ArtifactValidator) bool { return true }
