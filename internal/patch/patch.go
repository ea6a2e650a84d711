// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package patch applies per-library patch files to source trees with
// git apply. Application is idempotent.
package patch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goplus/depbuild/pkgs/buildsys"
)

// MarkerFile is created in a source tree once its patch is in place.
const MarkerFile = ".depbuild-patched"

// ErrConflict is returned when a patch neither applies nor is already applied.
var ErrConflict = errors.New("patch does not apply")

// Outcome tells what Apply did.
type Outcome int

const (
	NoPatch        Outcome = iota // no patch file for the library
	Marked                        // the marker file says the patch is in place
	Applied                       // the patch was applied now
	AlreadyApplied                // the tree already contained the patch
	Skipped                       // git is unavailable
)

func (o Outcome) String() string {
	switch o {
	case NoPatch:
		return "no patch"
	case Marked:
		return "marked"
	case Applied:
		return "applied"
	case AlreadyApplied:
		return "already applied"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Manager applies patches found in one directory.
type Manager struct {
	runner buildsys.Runner
	dir    string
	git    string
}

// Option configures a Manager.
type Option func(*Manager)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) Option {
	return func(m *Manager) {
		m.git = path
	}
}

// New returns a Manager reading <root>/patches.
func New(runner buildsys.Runner, root string, opts ...Option) *Manager {
	m := &Manager{runner: runner, dir: filepath.Join(root, "patches"), git: "git"}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// File returns the patch file path of library.
func (m *Manager) File(library string) string {
	return filepath.Join(m.dir, library+".patch")
}

// Apply puts the patch of library into sourceDir. A missing patch file,
// a tree already patched and a missing git are not errors.
func (m *Manager) Apply(ctx context.Context, library, sourceDir string) (Outcome, error) {
	patchFile, err := filepath.Abs(m.File(library))
	if err != nil {
		return NoPatch, err
	}
	if _, err := os.Stat(patchFile); err != nil {
		if os.IsNotExist(err) {
			return NoPatch, nil
		}
		return NoPatch, err
	}
	marker := filepath.Join(sourceDir, MarkerFile)
	if _, err := os.Stat(marker); err == nil {
		slog.Debug("patch already marked as applied", "library", library)
		return Marked, nil
	}

	outcome := Applied
	if err := m.run(ctx, sourceDir, "apply", "--check", patchFile); err != nil {
		if errors.Is(err, buildsys.ErrToolNotFound) {
			slog.Warn("git not found, skipping patch", "library", library, "patch", patchFile)
			return Skipped, nil
		}
		if rerr := m.run(ctx, sourceDir, "apply", "--reverse", "--check", patchFile); rerr != nil {
			return NoPatch, fmt.Errorf("%w: %s: %v", ErrConflict, filepath.Base(patchFile), err)
		}
		outcome = AlreadyApplied
	} else if err := m.run(ctx, sourceDir, "apply", patchFile); err != nil {
		return NoPatch, fmt.Errorf("apply %s: %w", filepath.Base(patchFile), err)
	}

	if err := os.WriteFile(marker, []byte(filepath.Base(patchFile)+"\n"), 0o644); err != nil {
		return outcome, fmt.Errorf("write patch marker: %w", err)
	}
	slog.Info("patch "+outcome.String(), "library", library, "patch", filepath.Base(patchFile))
	return outcome, nil
}

func (m *Manager) run(ctx context.Context, dir string, args ...string) error {
	_, err := m.runner.Output(ctx, buildsys.Command{Name: m.git, Args: args, Dir: dir})
	return err
}
