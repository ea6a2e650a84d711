// Package registry owns the set of known libraries and the dependency graph
// between them.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goplus/depbuild/internal/library"
)

// BuildOrderFile is the optional document listing the preferred base order.
const BuildOrderFile = "_build_order.yaml"

// ErrCircularDependency is wrapped by every *CycleError.
var ErrCircularDependency = errors.New("circular dependency")

// CycleError reports a dependency cycle. Path starts and ends with the same
// library, e.g. [a b a].
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v detected: %s", ErrCircularDependency, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCircularDependency
}

// Registry maps library names to descriptors.
type Registry struct {
	libs  map[string]*library.Library
	order []string
}

// New creates a Registry from already loaded descriptors. order is the
// preferred base build order; names missing from libs are ignored.
// When two descriptors share a name the later one wins.
func New(libs []*library.Library, order []string) *Registry {
	r := &Registry{
		libs:  make(map[string]*library.Library, len(libs)),
		order: slices.Clone(order),
	}
	for _, lib := range libs {
		r.add(lib)
	}
	return r
}

// Load reads every descriptor in dir, in file name order, plus the
// optional BuildOrderFile. A missing dir yields an empty registry.
func Load(dir string) (*Registry, error) {
	r := &Registry{libs: make(map[string]*library.Library)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !library.IsDescriptorFile(entry.Name()) {
			continue
		}
		lib, err := library.Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		r.add(lib)
	}

	order, err := loadBuildOrder(filepath.Join(dir, BuildOrderFile))
	if err != nil {
		return nil, err
	}
	r.order = order
	return r, nil
}

func (r *Registry) add(lib *library.Library) {
	// NOTE: duplicate names overwrite silently in the file layout we load
	// from; keep that behavior but make it visible.
	if _, ok := r.libs[lib.Name]; ok {
		slog.Warn("duplicate library descriptor, last one wins", "library", lib.Name)
	}
	r.libs[lib.Name] = lib
}

type buildOrderDoc struct {
	Order []string `yaml:"order"`
}

func loadBuildOrder(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var doc buildOrderDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return doc.Order, nil
}

// Get returns the library called name.
func (r *Registry) Get(name string) (*library.Library, bool) {
	lib, ok := r.libs[name]
	return lib, ok
}

// All returns every library sorted by name, regardless of platform.
func (r *Registry) All() []*library.Library {
	names := make([]string, 0, len(r.libs))
	for name := range r.libs {
		names = append(names, name)
	}
	slices.Sort(names)
	libs := make([]*library.Library, 0, len(names))
	for _, name := range names {
		libs = append(libs, r.libs[name])
	}
	return libs
}

// Len returns the number of known libraries.
func (r *Registry) Len() int {
	return len(r.libs)
}

func (r *Registry) enabled(platform string) map[string]*library.Library {
	enabled := make(map[string]*library.Library, len(r.libs))
	for name, lib := range r.libs {
		if lib.EnabledFor(platform) {
			enabled[name] = lib
		}
	}
	return enabled
}

// seeds returns the traversal order: the preferred order restricted to
// enabled libraries, followed by the remaining ones sorted by name.
func (r *Registry) seeds(enabled map[string]*library.Library) []string {
	seeds := make([]string, 0, len(enabled))
	seen := make(map[string]bool, len(enabled))
	for _, name := range r.order {
		if _, ok := enabled[name]; ok && !seen[name] {
			seeds = append(seeds, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(enabled)-len(seeds))
	for name := range enabled {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(seeds, rest...)
}
