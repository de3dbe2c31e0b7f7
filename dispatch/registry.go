package dispatch

import (
	"context"
	"fmt"
	"sort"

	"github.com/hupe1980/taskweave/core"
)

// Worker is an independently-executable unit handling one work stream. The
// dispatcher treats workers as opaque callables.
type Worker interface {
	// Description explains the role; the planner lists it in the catalog it
	// shows the generator.
	Description() string

	// Run produces the stream's content for the goal.
	Run(ctx context.Context, goal core.Goal, stream core.StreamName) (string, error)
}

// Registry is the static mapping from stream names to worker roles. It is
// populated at configuration time and read-only afterwards; resolving an
// unknown stream is a configuration error, not a runtime one.
type Registry struct {
	workers map[core.StreamName]Worker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{workers: map[core.StreamName]Worker{}}
}

// Register binds a stream name to a worker role, replacing any previous
// binding.
func (r *Registry) Register(name core.StreamName, w Worker) *Registry {
	r.workers[name] = w
	return r
}

// Resolve returns the worker for a stream or a configuration error.
func (r *Registry) Resolve(name core.StreamName) (Worker, error) {
	w, ok := r.workers[name]
	if !ok {
		return nil, core.NewError(core.KindConfiguration, string(name),
			fmt.Sprintf("no worker registered for stream %q", name), nil)
	}
	return w, nil
}

// Names returns all registered stream names in sorted order.
func (r *Registry) Names() []core.StreamName {
	names := make([]core.StreamName, 0, len(r.workers))
	for name := range r.workers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Catalog renders the registry as "name: description" lines for planner
// prompts.
func (r *Registry) Catalog() string {
	var out string
	for _, name := range r.Names() {
		out += fmt.Sprintf("- %s: %s\n", name, r.workers[name].Description())
	}
	return out
}

// Len reports the number of registered streams.
func (r *Registry) Len() int { return len(r.workers) }
