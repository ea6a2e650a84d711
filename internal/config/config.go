// Package config resolves the requested (architecture, build type, OS,
// runtime) tuple of a build run into concrete paths.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	ArchX86_64 = "x86_64"
	ArchARM64  = "arm64"

	Release = "Release"
	Debug   = "Debug"

	RuntimeMD = "MD"
	RuntimeMT = "MT"

	Linux   = "linux"
	MacOS   = "macos"
	Windows = "windows"
)

// MinMacOSDeploymentTarget is the oldest deployment target accepted.
const MinMacOSDeploymentTarget = "10.13"

// Config is the configuration of one build run. It is read-only once
// Validate has returned no errors.
type Config struct {
	Arch                  string
	BuildType             string
	MacOSDeploymentTarget string
	RuntimeLib            string
	RootDir               string

	// Platform overrides the host platform; empty means the host.
	Platform string
	// HostArch overrides the detected host architecture; empty means detect.
	HostArch string
}

// New returns a Config with the defaults for the host.
func New(rootDir string) *Config {
	return &Config{
		Arch:       HostArch(),
		BuildType:  Release,
		RuntimeLib: RuntimeMD,
		RootDir:    rootDir,
	}
}

// HostPlatform maps runtime.GOOS onto a platform name.
func HostPlatform() string {
	return PlatformOf(runtime.GOOS)
}

// PlatformOf maps a GOOS value onto a platform name.
func PlatformOf(goos string) string {
	if goos == "darwin" {
		return MacOS
	}
	return goos
}

// PlatformName returns linux, macos or windows.
func (c *Config) PlatformName() string {
	if c.Platform != "" {
		return c.Platform
	}
	return HostPlatform()
}

// Host returns the host machine architecture.
func (c *Config) Host() string {
	if c.HostArch != "" {
		return c.HostArch
	}
	return HostArch()
}

// IsCrossCompiling reports whether the target arch differs from the host.
func (c *Config) IsCrossCompiling() bool {
	return c.Host() != c.Arch
}

// PlatformTriplet returns e.g. "mac.arm64" or "linux.x86_64".
func (c *Config) PlatformTriplet() string {
	prefix := c.PlatformName()
	if prefix == MacOS {
		prefix = "mac"
	}
	return prefix + "." + c.Arch
}

// BuildSuffix identifies the configuration on disk. The runtime library is
// part of it only on Windows.
func (c *Config) BuildSuffix() string {
	if c.PlatformName() == Windows {
		return fmt.Sprintf("%s-%s-%s", c.PlatformTriplet(), c.BuildType, c.RuntimeLib)
	}
	return fmt.Sprintf("%s-%s", c.PlatformTriplet(), c.BuildType)
}

// OutputDir is the install prefix shared by all libraries of this run.
func (c *Config) OutputDir() string {
	return filepath.Join(c.RootDir, "output", c.BuildSuffix())
}

// BuildsDir is the scratch directory of this configuration.
func (c *Config) BuildsDir() string {
	return filepath.Join(c.RootDir, "builds", c.BuildSuffix())
}

// LibraryBuildDir is the scratch directory of one library.
func (c *Config) LibraryBuildDir(name string) string {
	return filepath.Join(c.BuildsDir(), name)
}

// IsDebug reports whether this is a Debug build.
func (c *Config) IsDebug() bool {
	return c.BuildType == Debug
}

// Validate checks the configuration and returns every problem found.
// It has no side effects.
func (c *Config) Validate() []string {
	var errs []string

	if c.Arch != ArchX86_64 && c.Arch != ArchARM64 {
		errs = append(errs, fmt.Sprintf("invalid arch %q, must be %q or %q", c.Arch, ArchX86_64, ArchARM64))
	}
	if c.BuildType != Release && c.BuildType != Debug {
		errs = append(errs, fmt.Sprintf("invalid build type %q, must be %q or %q", c.BuildType, Release, Debug))
	}
	if c.RuntimeLib != RuntimeMD && c.RuntimeLib != RuntimeMT {
		errs = append(errs, fmt.Sprintf("invalid runtime library %q, must be %q or %q", c.RuntimeLib, RuntimeMD, RuntimeMT))
	}
	if c.PlatformName() == MacOS {
		if c.MacOSDeploymentTarget == "" {
			errs = append(errs, "macOS deployment target is required on macOS")
		} else if msg := checkDeploymentTarget(c.MacOSDeploymentTarget); msg != "" {
			errs = append(errs, msg)
		}
	}
	return errs
}

func checkDeploymentTarget(target string) string {
	v := "v" + strings.TrimPrefix(target, "v")
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" {
		return fmt.Sprintf("invalid macOS deployment target %q, want a version like 13.0", target)
	}
	if semver.Compare(v, "v"+MinMacOSDeploymentTarget) < 0 {
		return fmt.Sprintf("macOS deployment target %s is older than the minimum %s", target, MinMacOSDeploymentTarget)
	}
	return ""
}
