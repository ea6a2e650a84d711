// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/pkgs/buildsys"
)

// C runtime default-library directives emitted by MSVC.
const (
	LIBCMT  = "LIBCMT"
	LIBCMTD = "LIBCMTD"
	MSVCRT  = "MSVCRT"
	MSVCRTD = "MSVCRTD"
)

var crtDirective = regexp.MustCompile(`(?i)\b(LIBCMTD?|MSVCRTD?)\b`)

// ExpectedCRT returns the only runtime directive allowed for runtimeLib
// and buildType.
func ExpectedCRT(runtimeLib, buildType string) string {
	debug := buildType == config.Debug
	if runtimeLib == config.RuntimeMT {
		if debug {
			return LIBCMTD
		}
		return LIBCMT
	}
	if debug {
		return MSVCRTD
	}
	return MSVCRT
}

// ForbiddenCRTs returns the runtime directives other than the expected one.
func ForbiddenCRTs(runtimeLib, buildType string) []string {
	expected := ExpectedCRT(runtimeLib, buildType)
	return slices.DeleteFunc([]string{LIBCMT, LIBCMTD, MSVCRT, MSVCRTD}, func(s string) bool {
		return s == expected
	})
}

// FindCRTs returns the runtime directives mentioned in dumpbin output,
// upper-cased and sorted.
func FindCRTs(directives string) []string {
	var found []string
	for _, m := range crtDirective.FindAllStringSubmatch(directives, -1) {
		found = append(found, strings.ToUpper(m[1]))
	}
	slices.Sort(found)
	return slices.Compact(found)
}

// CRTValidator checks that every .lib links only the C runtime selected
// by the configuration. Libraries without runtime directives pass.
type CRTValidator struct {
	runner  buildsys.Runner
	dumpbin *Locator
	cache   *ValidationCache
}

func (*CRTValidator) Name() string { return "CRT linkage" }

func (v *CRTValidator) Validate(ctx context.Context, cfg *config.Config, installDir string) error {
	pending, err := pendingArtifacts(v.cache, filepath.Join(installDir, "lib"), "*.lib")
	if err != nil || len(pending) == 0 {
		return err
	}
	dumpbin, err := v.dumpbin.Locate(ctx)
	if err != nil {
		return err
	}

	expected := ExpectedCRT(cfg.RuntimeLib, cfg.BuildType)
	forbidden := ForbiddenCRTs(cfg.RuntimeLib, cfg.BuildType)
	verr := &ValidationError{Validator: v.Name()}
	for _, a := range pending {
		name := filepath.Base(a.path)
		out, err := v.runner.Output(ctx, buildsys.Command{Name: dumpbin, Args: []string{"/directives", a.path}})
		if err != nil {
			// not cached, so the next pass retries it
			slog.Warn("dumpbin failed", "file", name, "error", err)
			continue
		}
		found := FindCRTs(string(out))
		var bad []string
		for _, crt := range found {
			if slices.Contains(forbidden, crt) {
				bad = append(bad, crt)
			}
		}
		if len(bad) > 0 {
			verr.Problems = append(verr.Problems, &ArtifactError{File: name, Found: bad, Expected: expected})
			continue
		}
		if len(found) == 0 {
			slog.Debug("no CRT directives", "file", name)
		}
		v.cache.MarkPassed(a.path, a.info)
	}
	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}
