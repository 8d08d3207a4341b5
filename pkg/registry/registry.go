package registry

import (
	"fmt"
	"sync"

	"github.com/aretw0/paneltree/pkg/domain"
)

// Registry maps handler ids to descriptors, keeping registration order.
// It is populated at startup and becomes read-only after Freeze.
type Registry struct {
	mu       sync.RWMutex
	order    []Descriptor
	handlers map[string]Descriptor
	frozen   bool
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Descriptor),
	}
}

// Register adds a handler. Duplicate ids and registration after Freeze are rejected.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("register %q: %w", d.ID(), domain.ErrRegistryFrozen)
	}
	if _, ok := r.handlers[d.ID()]; ok {
		return fmt.Errorf("register %q: %w", d.ID(), domain.ErrDuplicateHandler)
	}
	r.handlers[d.ID()] = d
	r.order = append(r.order, d)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(ds ...Descriptor) *Registry {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Get looks up a handler by id.
func (r *Registry) Get(id string) (Descriptor, error) {
	r.mu.RLock()
	d, ok := r.handlers[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownHandler, id)
	}
	return d, nil
}

// All returns every handler in registration order.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
