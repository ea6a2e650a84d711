// Package buildsystest provides a recording buildsys.Runner for tests.
package buildsystest

import (
	"context"
	"strings"

	"github.com/goplus/depbuild/pkgs/buildsys"
)

// Recorder records every command instead of running it.
//
// Errors and Outputs are keyed by a prefix of the command line
// (see buildsys.Command.String); the longest matching prefix wins.
type Recorder struct {
	Commands []buildsys.Command
	Errors   map[string]error
	Outputs  map[string]string
}

var _ buildsys.Runner = (*Recorder)(nil)

func (r *Recorder) Run(_ context.Context, cmd buildsys.Command) error {
	r.Commands = append(r.Commands, cmd)
	return lookup(r.Errors, cmd)
}

func (r *Recorder) Output(_ context.Context, cmd buildsys.Command) ([]byte, error) {
	r.Commands = append(r.Commands, cmd)
	if err := lookup(r.Errors, cmd); err != nil {
		return nil, err
	}
	return []byte(lookup(r.Outputs, cmd)), nil
}

// Lines returns the recorded command lines.
func (r *Recorder) Lines() []string {
	lines := make([]string, 0, len(r.Commands))
	for _, c := range r.Commands {
		lines = append(lines, c.String())
	}
	return lines
}

// Count returns how many recorded commands ran the executable name.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, c := range r.Commands {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Reset forgets the recorded commands.
func (r *Recorder) Reset() {
	r.Commands = nil
}

func lookup[V any](m map[string]V, cmd buildsys.Command) V {
	var (
		best V
		n    = -1
	)
	line := cmd.String()
	for prefix, v := range m {
		if strings.HasPrefix(line, prefix) && len(prefix) > n {
			best, n = v, len(prefix)
		}
	}
	return best
}
