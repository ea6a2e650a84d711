// Package buildsys defines the lifecycle shared by the native build tool
// drivers (CMake, Autotools, Meson, MSYS2) and the process runner they
// delegate execution to.
package buildsys

import "context"

// BuildSystem captures shared capabilities of build helpers (CMake, Autotools, etc).
// It keeps the common lifecycle and dependency/env setup; implementations add their own extras.
type BuildSystem interface {
	// Name returns the tool name, e.g. "cmake".
	Name() string

	// Use makes an install prefix visible to the build as a dependency root.
	Use(prefix string)

	// Environment helper.
	Env(key, val string)

	// Lifecycle.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error
	Install(ctx context.Context, args ...string) error

	// Where artifacts land.
	OutputDir() string
}
