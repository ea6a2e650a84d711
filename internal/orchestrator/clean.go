package orchestrator

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goplus/depbuild/internal/platform"
)

// Clean removes <root>/builds and empties every directory under
// <root>/output while keeping the directories themselves, since other
// projects may link to them. The caches of provider, which may be nil, are
// reset even when removal fails. It returns the output directories emptied.
func Clean(root string, provider platform.Provider) ([]string, error) {
	if provider != nil {
		defer provider.Reset()
	}

	builds := filepath.Join(root, "builds")
	if err := os.RemoveAll(builds); err != nil {
		return nil, err
	}
	slog.Info("removed", "dir", builds)

	var emptied []string
	output := filepath.Join(root, "output")
	entries, err := os.ReadDir(output)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(output, e.Name())
		items, err := os.ReadDir(dir)
		if err != nil {
			return emptied, err
		}
		for _, item := range items {
			if err := os.RemoveAll(filepath.Join(dir, item.Name())); err != nil {
				return emptied, err
			}
		}
		emptied = append(emptied, e.Name())
		slog.Info("emptied", "dir", dir)
	}
	return emptied, nil
}
