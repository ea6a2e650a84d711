package platform

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/pkgs/buildsys"
)

// MacOS targets a single architecture and a minimum deployment target.
type MacOS struct {
	lipo  *Locator
	arch  *ArchValidator
	owned owned
}

var _ Provider = (*MacOS)(nil)

func NewMacOS(runner buildsys.Runner) *MacOS {
	lipo := NewLocator(func(ctx context.Context) (string, error) {
		out, err := runner.Output(ctx, buildsys.Command{Name: "xcrun", Args: []string{"--find", "lipo"}})
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	}, "lipo")
	arch := &ArchValidator{runner: runner, lipo: lipo, cache: NewValidationCache()}
	return &MacOS{
		lipo:  lipo,
		arch:  arch,
		owned: owned{lipo, arch.cache},
	}
}

func (*MacOS) Name() string                          { return config.MacOS }
func (*MacOS) Generator() string                     { return "Ninja" }
func (*MacOS) ArchitectureArg(*config.Config) string { return "" }

func (*MacOS) CMakeOptions(cfg *config.Config) map[string]string {
	return map[string]string{
		"CMAKE_OSX_ARCHITECTURES":     cfg.Arch,
		"CMAKE_OSX_DEPLOYMENT_TARGET": cfg.MacOSDeploymentTarget,
	}
}

func (*MacOS) CFlags(cfg *config.Config) string {
	return "-mmacosx-version-min=" + cfg.MacOSDeploymentTarget + " -fPIC"
}

func (m *MacOS) CXXFlags(cfg *config.Config) string {
	return m.CFlags(cfg)
}

func (m *MacOS) Capabilities() Capabilities {
	return Capabilities{
		Validators: []ArtifactValidator{m.arch},
		Tools:      map[string]*Locator{"lipo": m.lipo},
	}
}

func (m *MacOS) Reset() {
	m.owned.Reset()
}

// ArchValidator checks that every static library holds exactly the
// target architecture.
type ArchValidator struct {
	runner buildsys.Runner
	lipo   *Locator
	cache  *ValidationCache
}

func (*ArchValidator) Name() string { return "architecture" }

func (v *ArchValidator) Validate(ctx context.Context, cfg *config.Config, installDir string) error {
	pending, err := pendingArtifacts(v.cache, filepath.Join(installDir, "lib"), "*.a")
	if err != nil || len(pending) == 0 {
		return err
	}
	lipo, err := v.lipo.Locate(ctx)
	if err != nil {
		return err
	}

	verr := &ValidationError{Validator: v.Name()}
	for _, a := range pending {
		out, err := v.runner.Output(ctx, buildsys.Command{Name: lipo, Args: []string{"-archs", a.path}})
		if err != nil {
			verr.Problems = append(verr.Problems, err)
			continue
		}
		archs := strings.Fields(string(out))
		slices.Sort(archs)
		archs = slices.Compact(archs)
		if !slices.Equal(archs, []string{cfg.Arch}) {
			verr.Problems = append(verr.Problems, &ArtifactError{
				File:     filepath.Base(a.path),
				Found:    archs,
				Expected: cfg.Arch,
			})
			continue
		}
		v.cache.MarkPassed(a.path, a.info)
	}
	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

type artifact struct {
	path string
	info os.FileInfo
}

// pendingArtifacts lists the files matching pattern in dir that have not
// passed validation yet.
func pendingArtifacts(cache *ValidationCache, dir, pattern string) ([]artifact, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	var pending []artifact
	for _, path := range matches {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if fi.IsDir() || cache.Passed(path, fi) {
			continue
		}
		pending = append(pending, artifact{path: path, info: fi})
	}
	return pending, nil
}
