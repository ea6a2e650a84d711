package registry

import (
	"slices"

	"github.com/goplus/depbuild/internal/library"
)

type mark uint8

const (
	unvisited mark = iota
	visiting
	done
)

type frame struct {
	name string
	next int // index of the next dependency to visit
}

// BuildOrder returns the libraries enabled for platform such that every
// enabled dependency of a library comes before it. Dependencies that are
// unknown or disabled on platform are ignored.
//
// Ties are broken by the preferred base order, then by name, so the result
// is deterministic for a given registry.
func (r *Registry) BuildOrder(platform string) ([]*library.Library, error) {
	enabled := r.enabled(platform)
	state := make(map[string]mark, len(enabled))
	ordered := make([]*library.Library, 0, len(enabled))

	for _, seed := range r.seeds(enabled) {
		if state[seed] != unvisited {
			continue
		}
		state[seed] = visiting
		stack := []frame{{name: seed}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			lib := enabled[top.name]
			if top.next < len(lib.DependsOn) {
				dep := lib.DependsOn[top.next]
				top.next++
				if _, ok := enabled[dep]; !ok {
					continue
				}
				switch state[dep] {
				case visiting:
					return nil, cycleFrom(stack, dep)
				case done:
					continue
				}
				state[dep] = visiting
				stack = append(stack, frame{name: dep})
				continue
			}
			// post-order: all dependencies are already emitted
			state[top.name] = done
			ordered = append(ordered, lib)
			stack = stack[:len(stack)-1]
		}
	}
	return ordered, nil
}

func cycleFrom(stack []frame, dep string) *CycleError {
	start := slices.IndexFunc(stack, func(f frame) bool { return f.name == dep })
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.name)
	}
	return &CycleError{Path: append(path, dep)}
}

// WithDependencies returns name plus the transitive closure of its enabled
// dependencies, in BuildOrder order. It returns an empty list when name is
// unknown or disabled on platform.
func (r *Registry) WithDependencies(name, platform string) ([]*library.Library, error) {
	lib, ok := r.libs[name]
	if !ok || !lib.EnabledFor(platform) {
		return nil, nil
	}

	want := map[string]bool{name: true}
	queue := []*library.Library{lib}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, depName := range cur.DependsOn {
			dep, ok := r.libs[depName]
			if !ok || !dep.EnabledFor(platform) || want[depName] {
				continue
			}
			want[depName] = true
			queue = append(queue, dep)
		}
	}

	all, err := r.BuildOrder(platform)
	if err != nil {
		return nil, err
	}
	out := make([]*library.Library, 0, len(want))
	for _, l := range all {
		if want[l.Name] {
			out = append(out, l)
		}
	}
	return out, nil
}

// MissingDependencies returns the direct dependencies of name that are
// unknown or disabled on platform. They are left out of every build order.
func (r *Registry) MissingDependencies(name, platform string) []string {
	lib, ok := r.libs[name]
	if !ok {
		return nil
	}
	var missing []string
	for _, dep := range lib.DependsOn {
		if d, ok := r.libs[dep]; !ok || !d.EnabledFor(platform) {
			missing = append(missing, dep)
		}
	}
	return missing
}
