package inventory

import (
	"fmt"

	"github.com/cory-johannsen/stockpile/internal/replication"
)

// Mirror is a read-only replica of a container built from replication
// frames. It has no mutation API; its state changes only through Apply.
type Mirror struct {
	container string
	kind      Kind
	maxSlots  int
	version   replication.Version
	entries   []Entry
	obs       observers
}

// NewMirror returns an empty replica of the container with the given id.
func NewMirror(container string) *Mirror {
	return &Mirror{container: container}
}

// Container returns the mirrored container's id.
func (m *Mirror) Container() string { return m.container }

// Kind returns the mirrored container's kind, known after the first frame.
func (m *Mirror) Kind() Kind { return m.kind }

// MaxSlots returns the mirrored slot limit.
func (m *Mirror) MaxSlots() int { return m.maxSlots }

// Version returns the version of the last applied frame.
func (m *Mirror) Version() replication.Version { return m.version }

// Snapshot returns a copy of the replicated entries in list order.
func (m *Mirror) Snapshot() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Subscribe registers o for the mirror's change notifications.
func (m *Mirror) Subscribe(o Observer) *Subscription {
	return m.obs.add(o)
}

// Apply applies f. A full frame replaces the replica's state; a delta frame
// must start at the mirror's current version.
//
// Postcondition: on success Version() == f.To and one Refreshed fired if
// anything changed.
func (m *Mirror) Apply(f Frame) error {
	const op = "inventory: Mirror.Apply"
	if f.Container != m.container {
		return fmt.Errorf("%s: %w: frame for container %q", op, ErrInvalidArgument, f.Container)
	}
	if !f.Full {
		if f.From != m.version {
			return fmt.Errorf("%s: %w: delta from %d, mirror at %d", op, ErrStaleFrame, f.From, m.version)
		}
		if f.To < f.From {
			return fmt.Errorf("%s: %w: delta ends at %d before %d", op, ErrStaleFrame, f.To, f.From)
		}
	} else if m.version != 0 && f.To < m.version {
		return fmt.Errorf("%s: %w: full frame at %d, mirror at %d", op, ErrStaleFrame, f.To, m.version)
	}

	changes := 0
	if f.Full {
		keep := make(map[EntryID]bool, len(f.Entries))
		for _, e := range f.Entries {
			keep[e.ID] = true
		}
		var stale []EntryID
		for _, e := range m.entries {
			if !keep[e.ID] {
				stale = append(stale, e.ID)
			}
		}
		changes += m.removeAll(stale)
		changes += m.upsertAll(f.Entries)
		m.reorder(f.Entries)
	} else {
		changes += m.removeAll(f.Removed)
		changes += m.upsertAll(f.Entries)
	}

	m.kind = f.Kind
	m.version = f.To
	if f.MaxSlots != m.maxSlots {
		m.maxSlots = f.MaxSlots
		n := f.MaxSlots
		m.obs.each(func(o Observer) { o.MaxSlotsChanged(n) })
	}
	if changes > 0 {
		snap := m.Snapshot()
		m.obs.each(func(o Observer) { o.Refreshed(append([]Entry(nil), snap...)) })
	}
	return nil
}

func (m *Mirror) index(id EntryID) int {
	for i, e := range m.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (m *Mirror) removeAll(ids []EntryID) int {
	n := 0
	for _, id := range ids {
		i := m.index(id)
		if i < 0 {
			continue
		}
		gone := m.entries[i]
		m.entries = append(m.entries[:i], m.entries[i+1:]...)
		m.obs.each(func(o Observer) { o.ItemRemoved(gone) })
		n++
	}
	return n
}

func (m *Mirror) upsertAll(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if i := m.index(e.ID); i >= 0 {
			if m.entries[i] == e {
				continue
			}
			m.entries[i] = e
			m.obs.each(func(o Observer) { o.ItemChanged(e) })
		} else {
			m.entries = append(m.entries, e)
			m.obs.each(func(o Observer) { o.ItemAdded(e) })
		}
		n++
	}
	return n
}

// reorder makes the replica's list order match order.
func (m *Mirror) reorder(order []Entry) {
	out := make([]Entry, 0, len(order))
	for _, e := range order {
		if i := m.index(e.ID); i >= 0 {
			out = append(out, m.entries[i])
		}
	}
	m.entries = out
}
