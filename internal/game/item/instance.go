package item

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

// InstanceID identifies an Instance.
type InstanceID = uuid.UUID

// Instance is the mutable per-stack record bound to a Definition.
// Each instance belongs to exactly one inventory entry.
type Instance struct {
	ID         InstanceID
	Definition *Definition
	// Tags holds per-instance tags such as durability state or flags.
	Tags tag.Set
	// Owner is the ID of the actor holding the container.
	Owner string
}

// Clone returns a copy of inst that shares the immutable Definition.
func (inst *Instance) Clone() *Instance {
	c := *inst
	c.Tags = append(tag.Set(nil), inst.Tags...)
	return &c
}

// Factory creates instances for one owning actor.
type Factory struct {
	owner string
}

// NewFactory returns a Factory that stamps owner onto every instance.
func NewFactory(owner string) *Factory {
	return &Factory{owner: owner}
}

// Owner returns the owner ID stamped onto new instances.
func (f *Factory) Owner() string {
	return f.owner
}

// New creates an Instance of def with a fresh ID. Each fragment's instance
// tags are stamped onto the new instance.
//
// Precondition: def must not be nil.
// Postcondition: result.Definition == def and result.ID is unique.
func (f *Factory) New(def *Definition) *Instance {
	if def == nil {
		panic("item.Factory.New: def must not be nil")
	}
	var tags tag.Set
	for _, frag := range def.Fragments {
		tags = tags.Union(frag.InstanceTags())
	}
	return &Instance{
		ID:         uuid.New(),
		Definition: def,
		Tags:       tags,
		Owner:      f.owner,
	}
}
