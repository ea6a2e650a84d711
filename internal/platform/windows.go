package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/library"
	"github.com/goplus/depbuild/pkgs/buildsys"
)

// Windows builds with the Visual Studio 2022 generator and checks the C
// runtime every library links against.
type Windows struct {
	dumpbin *Locator
	msbuild *Locator
	crt     *CRTValidator
	owned   owned
}

var _ Provider = (*Windows)(nil)

func NewWindows(runner buildsys.Runner) *Windows {
	vs := newVSWhere(runner)
	dumpbin := NewLocator(vs.findDumpbin, "dumpbin")
	msbuild := NewLocator(vs.findMSBuild, "msbuild", "MSBuild")
	crt := &CRTValidator{runner: runner, dumpbin: dumpbin, cache: NewValidationCache()}
	return &Windows{
		dumpbin: dumpbin,
		msbuild: msbuild,
		crt:     crt,
		owned:   owned{dumpbin, msbuild, crt.cache},
	}
}

func (*Windows) Name() string      { return config.Windows }
func (*Windows) Generator() string { return "Visual Studio 17 2022" }

func (*Windows) ArchitectureArg(cfg *config.Config) string {
	if cfg.Arch == config.ArchARM64 {
		return "ARM64"
	}
	return "x64"
}

func (*Windows) CMakeOptions(cfg *config.Config) map[string]string {
	return map[string]string{"CMAKE_MSVC_RUNTIME_LIBRARY": MSVCRuntimeLibrary(cfg)}
}

// MSVCRuntimeLibrary returns the CMAKE_MSVC_RUNTIME_LIBRARY value, e.g.
// MultiThreadedDebugDLL.
func MSVCRuntimeLibrary(cfg *config.Config) string {
	rt := "MultiThreaded"
	if cfg.IsDebug() {
		rt += "Debug"
	}
	if cfg.RuntimeLib == config.RuntimeMD {
		rt += "DLL"
	}
	return rt
}

func (w *Windows) CFlags(cfg *config.Config) string {
	if cfg.IsDebug() {
		return debugFlags(cfg)
	}
	return releaseFlags(cfg)
}

func (w *Windows) CXXFlags(cfg *config.Config) string {
	return w.CFlags(cfg) + " /EHsc"
}

func debugFlags(cfg *config.Config) string {
	return "/" + cfg.RuntimeLib + "d /Od /Zi /D_DEBUG"
}

func releaseFlags(cfg *config.Config) string {
	return "/" + cfg.RuntimeLib + " /O2 /DNDEBUG"
}

// configFlags covers every configuration of the multi-config generator, so
// the runtime stays consistent whatever --config the build uses.
func configFlags(cfg *config.Config, lang library.Language) map[string]string {
	prefix, suffix := "CMAKE_C_FLAGS_", ""
	if lang == library.CXX {
		prefix, suffix = "CMAKE_CXX_FLAGS_", " /EHsc"
	}
	return map[string]string{
		prefix + "DEBUG":          debugFlags(cfg) + suffix,
		prefix + "RELEASE":        releaseFlags(cfg) + suffix,
		prefix + "MINSIZEREL":     releaseFlags(cfg) + suffix,
		prefix + "RELWITHDEBINFO": "/" + cfg.RuntimeLib + " /O2 /Zi /DNDEBUG" + suffix,
	}
}

func (w *Windows) Capabilities() Capabilities {
	return Capabilities{
		ConfigFlags: configFlags,
		PostInstall: copyPDBs,
		Validators:  []ArtifactValidator{w.crt},
		Tools: map[string]*Locator{
			"dumpbin": w.dumpbin,
			"msbuild": w.msbuild,
		},
	}
}

func (w *Windows) Reset() {
	w.owned.Reset()
}

// copyPDBs installs the program databases of a Debug build next to the
// static libraries.
func copyPDBs(_ context.Context, cfg *config.Config, lib *library.Library, buildDir, installDir string) error {
	if !cfg.IsDebug() {
		return nil
	}
	srcDir := filepath.Join(buildDir, cfg.BuildType)
	if _, err := os.Stat(srcDir); err != nil {
		slog.Info("PDB source directory not found, skipping PDB copy", "library", lib.Name, "dir", srcDir)
		return nil
	}
	pdbs, err := filepath.Glob(filepath.Join(srcDir, "*.pdb"))
	if err != nil {
		return err
	}
	destDir := filepath.Join(installDir, "lib")
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	for _, pdb := range pdbs {
		dest := filepath.Join(destDir, filepath.Base(pdb))
		slog.Debug("copying PDB", "library", lib.Name, "file", filepath.Base(pdb))
		if err := copyFile(pdb, dest); err != nil {
			return fmt.Errorf("copy %s: %w", filepath.Base(pdb), err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, fi.ModTime(), fi.ModTime())
}
