package item

import (
	"fmt"
	"sort"
)

// Registry holds all loaded item definitions indexed by ID.
//
// A Registry is populated at startup and read-only afterwards; it is safe for
// concurrent reads once loading completes.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry returns an empty Registry.
//
// Postcondition: internal map is initialised.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds d to the registry.
//
// Precondition:  d must not be nil.
// Postcondition: Definition(d.ID) returns (d, true); returns error if d.ID already registered.
func (r *Registry) Register(d *Definition) error {
	if _, exists := r.defs[d.ID]; exists {
		return fmt.Errorf("item: Registry.Register: item ID %q already registered", d.ID)
	}
	r.defs[d.ID] = d
	return nil
}

// RegisterAll registers every definition, stopping at the first duplicate.
func (r *Registry) RegisterAll(defs []*Definition) error {
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// Definition returns the Definition for the given id and whether it was found.
//
// Postcondition: ok is true iff the id is registered.
func (r *Registry) Definition(id string) (*Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}

// All returns all registered definitions sorted by ID.
//
// Postcondition: len(result) == Len().
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadRegistry loads every definition in dir into a new Registry.
func LoadRegistry(dir string) (*Registry, error) {
	defs, err := LoadDefinitions(dir)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	if err := reg.RegisterAll(defs); err != nil {
		return nil, err
	}
	return reg, nil
}
