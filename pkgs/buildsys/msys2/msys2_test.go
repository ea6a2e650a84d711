package msys2

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/syntax"

	"github.com/goplus/depbuild/pkgs/buildsys/buildsystest"
)

func TestToMSYSPath(t *testing.T) {
	for in, want := range map[string]string{
		`C:\work\libvpx`:      "/c/work/libvpx",
		`D:/out/windows`:      "/d/out/windows",
		"/already/posix":      "/already/posix",
		`relative\dir\config`: "relative/dir/config",
	} {
		if got := ToMSYSPath(in); got != want {
			t.Errorf("ToMSYSPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFindBash(t *testing.T) {
	t.Setenv("MSYS2_PATH", "")
	second := t.TempDir()
	bash := filepath.Join(second, "usr", "bin", "bash.exe")
	require.NoError(t, os.MkdirAll(filepath.Dir(bash), 0o755))
	require.NoError(t, os.WriteFile(bash, nil, 0o755))

	got, err := FindBash([]string{filepath.Join(t.TempDir(), "missing"), second})
	require.NoError(t, err)
	assert.Equal(t, bash, got)

	_, err = FindBash([]string{filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, ErrBashNotFound)

	t.Setenv("MSYS2_PATH", second)
	got, err = FindBash(nil)
	require.NoError(t, err)
	assert.Equal(t, bash, got)
}

func TestScript(t *testing.T) {
	m := New(nil, "bash.exe", "src", "build", "out")
	script, err := m.Script("make", "-j")
	require.NoError(t, err)
	assert.Equal(t, "make -j", script)

	m.PrependPath(`C:\Program Files\MSBuild\Bin`)
	script, err = m.Script("make", "install")
	require.NoError(t, err)
	assert.Equal(t, `export PATH='/c/Program Files/MSBuild/Bin':"$PATH"; make install`, script)

	_, err = m.Script("bad\x00arg")
	var qerr *syntax.QuoteError
	assert.ErrorAs(t, err, &qerr)
}

func TestConfigureBuildInstall(t *testing.T) {
	rec := &buildsystest.Recorder{}
	buildDir := filepath.Join(t.TempDir(), "libvpx")
	m := New(rec, "/msys64/usr/bin/bash.exe", `C:\src\libvpx`, buildDir, `C:\out\windows.x86_64-Release-MT`).
		Target("x86_64-win64-vs17").
		Jobs(4)

	ctx := context.Background()
	require.NoError(t, m.Configure(ctx, "--enable-static-msvcrt", "--disable-examples"))
	require.NoError(t, m.Build(ctx))
	require.NoError(t, m.Install(ctx))

	require.Len(t, rec.Commands, 3)
	scripts := make([]string, 0, 3)
	for _, cmd := range rec.Commands {
		assert.Equal(t, "/msys64/usr/bin/bash.exe", cmd.Name)
		assert.Equal(t, buildDir, cmd.Dir)
		assert.Equal(t, "MSYS", cmd.Env["MSYSTEM"])
		require.Len(t, cmd.Args, 2)
		assert.Equal(t, "-lc", cmd.Args[0])
		scripts = append(scripts, cmd.Args[1])
	}
	assert.Equal(t, []string{
		ToMSYSPath(filepath.Join(`C:\src\libvpx`, "configure")) +
			" '--target=x86_64-win64-vs17' '--prefix=/c/out/windows.x86_64-Release-MT' --enable-static-msvcrt --disable-examples",
		"make -j4",
		"make install",
	}, scripts)
}

func TestFlattenLibDir(t *testing.T) {
	install := t.TempDir()
	lib := filepath.Join(install, "lib")
	require.NoError(t, os.MkdirAll(filepath.Join(lib, "x64"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "x64", "vpx.lib"), []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "vpx.lib"), []byte("old"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(lib, "other"), 0o755))

	moved, err := FlattenLibDir(install)
	require.NoError(t, err)
	assert.Equal(t, []string{"x64/vpx.lib"}, moved)

	data, err := os.ReadFile(filepath.Join(lib, "vpx.lib"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	_, err = os.Stat(filepath.Join(lib, "x64"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(filepath.Join(lib, "other"))
	assert.NoError(t, err)

	moved, err = FlattenLibDir(filepath.Join(t.TempDir(), "empty"))
	require.NoError(t, err)
	assert.Empty(t, moved)
}
