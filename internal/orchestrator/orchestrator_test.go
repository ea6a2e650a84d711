package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goplus/depbuild/internal/builder"
	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/library"
	"github.com/goplus/depbuild/internal/metrics"
	"github.com/goplus/depbuild/internal/platform"
	"github.com/goplus/depbuild/internal/registry"
	"github.com/goplus/depbuild/pkgs/buildsys"
	"github.com/goplus/depbuild/pkgs/buildsys/buildsystest"
)

func lib(name string, deps ...string) *library.Library {
	return &library.Library{
		Name:        name,
		SourceDir:   "repositories/" + name,
		BuildSystem: library.CMake,
		DependsOn:   deps,
		Languages:   []library.Language{library.C},
	}
}

func names(libs []*library.Library) []string {
	out := make([]string, 0, len(libs))
	for _, l := range libs {
		out = append(out, l.Name)
	}
	return out
}

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Arch:       config.ArchX86_64,
		HostArch:   config.ArchX86_64,
		BuildType:  config.Release,
		RuntimeLib: config.RuntimeMD,
		RootDir:    t.TempDir(),
		Platform:   config.Linux,
	}
}

// testRegistry is zlib <- png <- freetype, plus x264 disabled on linux.
func testRegistry() *registry.Registry {
	x264 := lib("x264")
	x264.DisabledPlatforms = []string{config.Linux}
	return registry.New([]*library.Library{
		lib("freetype", "png", "zlib"),
		lib("png", "zlib"),
		lib("zlib"),
		x264,
	}, nil)
}

func TestSelect(t *testing.T) {
	reg, cfg := testRegistry(), newConfig(t)

	all, err := Select(reg, cfg, Selection{})
	require.NoError(t, err)
	assert.Equal(t, []string{"zlib", "png", "freetype"}, names(all))

	closure, err := Select(reg, cfg, Selection{Library: "png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"zlib", "png"}, names(closure))

	single, err := Select(reg, cfg, Selection{Library: "freetype", NoDeps: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"freetype"}, names(single))

	_, err = Select(reg, cfg, Selection{Library: "openssl"})
	assert.ErrorIs(t, err, ErrUnknownLibrary)

	for _, noDeps := range []bool{false, true} {
		_, err = Select(reg, cfg, Selection{Library: "x264", NoDeps: noDeps})
		assert.ErrorIs(t, err, ErrLibraryUnavailable)
	}

	_, err = Select(registry.New(nil, nil), cfg, Selection{})
	assert.ErrorIs(t, err, ErrNothingToBuild)
}

func TestSelectCycle(t *testing.T) {
	reg := registry.New([]*library.Library{lib("a", "b"), lib("b", "a")}, nil)
	_, err := Select(reg, newConfig(t), Selection{})
	assert.ErrorIs(t, err, registry.ErrCircularDependency)
}

func newOrchestrator(t *testing.T, cfg *config.Config, rec *buildsystest.Recorder, m *metrics.Recorder) *Orchestrator {
	t.Helper()
	provider, err := platform.New(cfg.PlatformName(), rec)
	require.NoError(t, err)
	for _, name := range []string{"zlib", "png", "freetype"} {
		require.NoError(t, os.MkdirAll(filepath.Join(cfg.RootDir, "repositories", name), 0o755))
	}
	return New(testRegistry(), cfg, provider, rec, Options{Metrics: m})
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := newConfig(t)
	cfg.Arch = "mips"
	cfg.BuildType = "Fast"
	rec := &buildsystest.Recorder{}
	o := newOrchestrator(t, cfg, rec, nil)

	_, err := o.Run(context.Background(), []*library.Library{lib("zlib")})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Len(t, cerr.Problems, 2, "all problems are reported together")
	assert.Empty(t, rec.Commands, "nothing may run with an invalid configuration")
}

func TestRun(t *testing.T) {
	cfg := newConfig(t)
	rec := &buildsystest.Recorder{}
	m := metrics.New()
	o := newOrchestrator(t, cfg, rec, m)

	libs, err := o.Select(Selection{})
	require.NoError(t, err)
	results, err := o.Run(context.Background(), libs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, builder.Success, res.State, res.Library)
	}
	assert.Equal(t, 9, rec.Count("cmake"))

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	cfg := newConfig(t)
	boom := &buildsys.ExitError{Cmd: "cmake", Code: 1}
	rec := &buildsystest.Recorder{Errors: map[string]error{
		"cmake --build " + cfg.LibraryBuildDir("png"): boom,
	}}
	o := newOrchestrator(t, cfg, rec, nil)

	libs, err := o.Select(Selection{})
	require.NoError(t, err)
	results, err := o.Run(context.Background(), libs)

	var failure *BuildFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "png", failure.Library)
	assert.ErrorIs(t, err, boom)

	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	assert.Equal(t, builder.Failed, results[1].State)
	for _, c := range rec.Commands {
		assert.NotContains(t, c.String(), "freetype", "no library may run after a failure")
	}
}

func TestRunCanceled(t *testing.T) {
	o := newOrchestrator(t, newConfig(t), &buildsystest.Recorder{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Run(ctx, []*library.Library{lib("zlib")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlan(t *testing.T) {
	cfg := newConfig(t)
	rec := &buildsystest.Recorder{}
	o := newOrchestrator(t, cfg, rec, nil)

	libs, err := o.Select(Selection{Library: "png"})
	require.NoError(t, err)
	steps, err := o.Plan(libs)
	require.NoError(t, err)
	assert.Equal(t, []Step{
		{
			Library:     "zlib",
			BuildSystem: library.CMake,
			SourceDir:   filepath.Join(cfg.RootDir, "repositories", "zlib"),
			BuildDir:    cfg.LibraryBuildDir("zlib"),
			InstallDir:  cfg.OutputDir(),
		},
		{
			Library:     "png",
			BuildSystem: library.CMake,
			DependsOn:   []string{"zlib"},
			SourceDir:   filepath.Join(cfg.RootDir, "repositories", "png"),
			BuildDir:    cfg.LibraryBuildDir("png"),
			InstallDir:  cfg.OutputDir(),
		},
	}, steps)
	assert.Empty(t, rec.Commands)
}

type resetCounter struct {
	platform.Provider
	resets int
}

func (r *resetCounter) Reset() { r.resets++ }

func TestClean(t *testing.T) {
	root := t.TempDir()
	write := func(rel string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
	write("builds/linux.x86_64-Release/zlib/CMakeCache.txt")
	write("output/linux.x86_64-Release/lib/libz.a")
	write("output/linux.x86_64-Release/include/zlib.h")
	write("output/mac.arm64-Debug/lib/libz.a")
	write("output/README")

	p := &resetCounter{Provider: platform.NewLinux()}
	emptied, err := Clean(root, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"linux.x86_64-Release", "mac.arm64-Debug"}, emptied)
	assert.Equal(t, 1, p.resets)

	_, err = os.Stat(filepath.Join(root, "builds"))
	assert.True(t, os.IsNotExist(err))
	for _, dir := range emptied {
		entries, err := os.ReadDir(filepath.Join(root, "output", dir))
		require.NoError(t, err, "output directories are kept")
		assert.Empty(t, entries)
	}

	// a second clean of an empty workspace is fine
	_, err = Clean(root, nil)
	require.NoError(t, err)
	_, err = Clean(filepath.Join(root, "missing"), nil)
	require.NoError(t, err)
}

func TestCleanResetsOnFailure(t *testing.T) {
	root := t.TempDir()
	// output is a file, so listing it fails
	require.NoError(t, os.WriteFile(filepath.Join(root, "output"), nil, 0o644))

	p := &resetCounter{Provider: platform.NewLinux()}
	_, err := Clean(root, p)
	require.Error(t, err)
	assert.Equal(t, 1, p.resets, "caches are reset even when clean fails")
}
