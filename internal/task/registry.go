package task

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned by Get for unknown task ids. The engine surfaces
// it to callers unchanged; an unknown task is never silently substituted.
var ErrNotFound = errors.New("task not found")

// Registry maps task ids to their specifications.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Register adds a spec to the registry. Registering a duplicate id is an
// error.
func (r *Registry) Register(s Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := s.ID()
	if id == "" {
		return fmt.Errorf("task: spec has empty id")
	}
	if _, exists := r.specs[id]; exists {
		return fmt.Errorf("task %q already registered", id)
	}
	r.specs[id] = s
	return nil
}

// MustRegister is Register that panics on error. The catalog uses it at
// construction time where a duplicate id is a programming error.
func (r *Registry) MustRegister(s Spec) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Get returns the spec for id, or ErrNotFound.
func (r *Registry) Get(id string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.specs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s, nil
}

// Info is a summary of a registered task.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List returns metadata for all registered tasks, sorted by id.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.specs))
	for _, s := range r.specs {
		infos = append(infos, Info{
			ID:          s.ID(),
			Name:        s.Name(),
			Description: s.Description(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}
