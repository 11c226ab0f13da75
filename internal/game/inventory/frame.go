package inventory

import (
	"github.com/cory-johannsen/stockpile/internal/replication"
)

// Frame is one replication message for a container: either its full state
// or the changes between two versions.
type Frame struct {
	Container string              `json:"container"`
	Kind      Kind                `json:"kind"`
	MaxSlots  int                 `json:"max_slots"`
	From      replication.Version `json:"from"`
	To        replication.Version `json:"to"`
	// Full frames carry every live entry in list order in Entries.
	Full bool `json:"full"`
	// Entries holds added and changed entries in creation order.
	Entries []Entry   `json:"entries,omitempty"`
	Removed []EntryID `json:"removed,omitempty"`
}

// Empty reports whether a delta frame carries no changes.
func (f Frame) Empty() bool {
	return !f.Full && f.From == f.To && len(f.Entries) == 0 && len(f.Removed) == 0
}

// FullFrame returns the container's complete state at the current version.
func (c *Container) FullFrame() Frame {
	return Frame{
		Container: c.id,
		Kind:      c.kind,
		MaxSlots:  c.maxSlots,
		To:        c.store.Version(),
		Full:      true,
		Entries:   c.store.Snapshot(),
	}
}

// Delta returns the changes after version since. Observers behind the
// compaction floor receive a full frame instead.
//
// Postcondition: result.To == Version().
func (c *Container) Delta(since replication.Version) Frame {
	d := c.store.tracker.Since(since)
	if d.Reset {
		return c.FullFrame()
	}
	f := Frame{
		Container: c.id,
		Kind:      c.kind,
		MaxSlots:  c.maxSlots,
		From:      d.From,
		To:        d.To,
		Removed:   d.Removed,
	}
	changed := make(map[EntryID]bool, len(d.Added)+len(d.Changed))
	for _, id := range d.Added {
		changed[id] = true
	}
	for _, id := range d.Changed {
		changed[id] = true
	}
	for _, e := range c.store.entries {
		if changed[e.ID] {
			f.Entries = append(f.Entries, *e)
		}
	}
	return f
}

// Compact discards tombstones every observer has acknowledged. minAck is the
// lowest version acknowledged across all observers.
func (c *Container) Compact(minAck replication.Version) int {
	return c.store.tracker.Compact(minAck)
}
