// Package world holds the in-world collaborators of the container engine:
// owning actors, item pickups and storage actors.
package world

// Actor is an entity that owns containers. Only the authoritative side of a
// replicated actor may mutate its containers.
type Actor struct {
	ID        string
	Authority bool
}

// NewActor returns an Actor.
//
// Precondition: id must be non-empty.
func NewActor(id string, authority bool) *Actor {
	if id == "" {
		panic("world.NewActor: id must not be empty")
	}
	return &Actor{ID: id, Authority: authority}
}

// OwnerID implements inventory.Owner.
func (a *Actor) OwnerID() string { return a.ID }

// HasAuthority implements inventory.Owner.
func (a *Actor) HasAuthority() bool { return a.Authority }
