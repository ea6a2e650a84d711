package platform

import (
	"io/fs"
	"time"
)

type stamp struct {
	size    int64
	modTime time.Time
}

// ValidationCache remembers artifacts that passed validation. An entry
// only matches while the file keeps its size and modification time.
type ValidationCache struct {
	passed map[string]stamp
}

func NewValidationCache() *ValidationCache {
	return &ValidationCache{passed: make(map[string]stamp)}
}

// Passed reports whether path, described by fi, already passed.
func (c *ValidationCache) Passed(path string, fi fs.FileInfo) bool {
	s, ok := c.passed[path]
	return ok && s.size == fi.Size() && s.modTime.Equal(fi.ModTime())
}

// MarkPassed records that path passed validation.
func (c *ValidationCache) MarkPassed(path string, fi fs.FileInfo) {
	c.passed[path] = stamp{size: fi.Size(), modTime: fi.ModTime()}
}

func (c *ValidationCache) Len() int {
	return len(c.passed)
}

func (c *ValidationCache) Reset() {
	clear(c.passed)
}
