package env

import (
	"os"
	"path/filepath"
)

// RootVar names the environment variable holding the workspace root.
const RootVar = "DEPBUILD_ROOT"

// RootDir returns the workspace root: $DEPBUILD_ROOT when set, otherwise
// the working directory. The result is absolute.
func RootDir() (string, error) {
	if root := os.Getenv(RootVar); root != "" {
		return filepath.Abs(root)
	}
	return os.Getwd()
}

// LibrariesDir returns the directory holding the library descriptors of root.
func LibrariesDir(root string) string {
	return filepath.Join(root, "libraries")
}
