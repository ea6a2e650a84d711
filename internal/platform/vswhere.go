// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/goplus/depbuild/pkgs/buildsys"
)

var errNoResult = errors.New("vswhere returned no result")

// vsWhere queries the Visual Studio installer.
type vsWhere struct {
	runner buildsys.Runner
	exe    string
}

func newVSWhere(runner buildsys.Runner) *vsWhere {
	programFiles := os.Getenv("ProgramFiles(x86)")
	if programFiles == "" {
		programFiles = `C:\Program Files (x86)`
	}
	return &vsWhere{
		runner: runner,
		exe:    filepath.Join(programFiles, "Microsoft Visual Studio", "Installer", "vswhere.exe"),
	}
}

// query returns the first line printed by vswhere.
func (v *vsWhere) query(ctx context.Context, args ...string) (string, error) {
	if _, err := os.Stat(v.exe); err != nil {
		return "", ErrToolNotFound
	}
	out, err := v.runner.Output(ctx, buildsys.Command{Name: v.exe, Args: args})
	if err != nil {
		return "", err
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return "", errNoResult
	}
	return first, nil
}

func (v *vsWhere) findMSBuild(ctx context.Context) (string, error) {
	return v.query(ctx, "-latest", "-requires", "Microsoft.Component.MSBuild",
		"-find", `MSBuild\**\Bin\MSBuild.exe`)
}

func (v *vsWhere) findDumpbin(ctx context.Context) (string, error) {
	vsPath, err := v.query(ctx, "-latest", "-requires",
		"Microsoft.VisualStudio.Component.VC.Tools.x86.x64", "-property", "installationPath")
	if err != nil {
		return "", err
	}
	toolsDir := filepath.Join(vsPath, "VC", "Tools", "MSVC")
	entries, err := os.ReadDir(toolsDir)
	if err != nil {
		return "", err
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	if len(versions) == 0 {
		return "", errors.New("no MSVC toolset in " + toolsDir)
	}
	latest := slices.MaxFunc(versions, compareToolset)

	for _, host := range []string{"Hostx64", "Hostx86"} {
		for _, target := range []string{"x64", "x86"} {
			dumpbin := filepath.Join(toolsDir, latest, "bin", host, target, "dumpbin.exe")
			if _, err := os.Stat(dumpbin); err == nil {
				return dumpbin, nil
			}
		}
	}
	return "", errors.New("dumpbin.exe not in MSVC " + latest)
}

// compareToolset orders MSVC toolset versions such as 14.38.33130.
func compareToolset(a, b string) int {
	va, vb := "v"+a, "v"+b
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb)
	}
	return strings.Compare(a, b)
}
