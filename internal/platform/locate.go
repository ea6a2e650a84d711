// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/goplus/depbuild/pkgs/buildsys"
)

// ErrToolNotFound is returned when a toolchain executable cannot be located.
var ErrToolNotFound = buildsys.ErrToolNotFound

// DiscoveryTimeout bounds every toolchain discovery query.
const DiscoveryTimeout = 10 * time.Second

// FallbackFunc searches for a tool outside PATH.
type FallbackFunc func(ctx context.Context) (string, error)

// Locator finds a tool on PATH, then through its fallback. The outcome,
// found or not, is remembered until Reset.
type Locator struct {
	names    []string
	fallback FallbackFunc
	lookPath func(string) (string, error)

	searched bool
	path     string
	err      error
}

// NewLocator returns a Locator trying each of names on PATH before
// fallback, which may be nil.
func NewLocator(fallback FallbackFunc, names ...string) *Locator {
	return &Locator{names: names, fallback: fallback, lookPath: exec.LookPath}
}

// Name returns the primary executable name.
func (l *Locator) Name() string {
	return l.names[0]
}

// Locate returns the path of the tool.
func (l *Locator) Locate(ctx context.Context) (string, error) {
	if !l.searched {
		l.path, l.err = l.locate(ctx)
		l.searched = true
	}
	return l.path, l.err
}

func (l *Locator) locate(ctx context.Context) (string, error) {
	for _, name := range l.names {
		if p, err := l.lookPath(name); err == nil {
			slog.Debug("found tool on PATH", "tool", l.Name(), "path", p)
			return p, nil
		}
	}
	if l.fallback == nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, l.Name())
	}

	ctx, cancel := context.WithTimeout(ctx, DiscoveryTimeout)
	defer cancel()
	p, err := l.fallback(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrToolNotFound, l.Name(), err)
	}
	slog.Debug("found tool", "tool", l.Name(), "path", p)
	return p, nil
}

func (l *Locator) Reset() {
	l.searched = false
	l.path = ""
	l.err = nil
}
