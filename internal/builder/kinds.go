package builder

import (
	"strings"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/library"
	"github.com/goplus/depbuild/internal/platform"
	"github.com/goplus/depbuild/pkgs/buildsys"
	"github.com/goplus/depbuild/pkgs/buildsys/msys2"
)

// kindEnv is shared by all kinds of one pipeline.
type kindEnv struct {
	cfg      *config.Config
	platform platform.Provider
	runner   buildsys.Runner
	jobs     int
}

// goos maps the configured platform onto a GOOS value for the drivers.
func (e *kindEnv) goos() string {
	if p := e.cfg.PlatformName(); p != config.MacOS {
		return p
	}
	return "darwin"
}

func (e *kindEnv) isMacOS() bool {
	return e.cfg.PlatformName() == config.MacOS
}

// useDeps exposes the shared install prefix to libraries with dependencies.
func useDeps(bs buildsys.BuildSystem, job *Job) {
	if len(job.Library.DependsOn) > 0 {
		bs.Use(job.InstallDir)
	}
}

// configureOptions renders options as configure switches: --key for true,
// nothing for false, --key=value otherwise.
func configureOptions(opts library.Options) []string {
	var args []string
	for _, k := range opts.Keys() {
		if b, ok := opts.Bool(k); ok {
			if b {
				args = append(args, library.OptionFlag(k))
			}
			continue
		}
		args = append(args, library.OptionFlag(k)+"="+opts.Render(k, "yes", "no"))
	}
	return args
}

func joinFlags(flags ...string) string {
	var parts []string
	for _, f := range flags {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

func defaultMSYS2Roots() []string {
	return msys2.DefaultRoots
}
