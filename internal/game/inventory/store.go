package inventory

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/stockpile/internal/game/item"
	"github.com/cory-johannsen/stockpile/internal/replication"
)

// storeListener receives the store's change notifications. The owning
// Container is the only implementation.
type storeListener interface {
	entryAdded(Entry)
	entryRemoved(Entry)
	entryChanged(Entry)
}

// Store is the ordered entry list of one container. It is the sole owner of
// the item instances its entries reference: an instance lives exactly as long
// as its entry.
//
// Every mutation records a dirty mark in the replication tracker and notifies
// the listener after the store is consistent again.
type Store struct {
	entries   []*Entry
	instances map[item.InstanceID]*item.Instance
	tracker   *replication.Tracker[EntryID]
	listener  storeListener
}

func newStore(l storeListener) *Store {
	return &Store{
		instances: make(map[item.InstanceID]*item.Instance),
		tracker:   replication.NewTracker[EntryID](),
		listener:  l,
	}
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Snapshot returns a copy of the entries in list order.
//
// Postcondition: mutating the result does not affect the store.
func (s *Store) Snapshot() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}

// Version returns the replication version.
func (s *Store) Version() replication.Version {
	return s.tracker.Version()
}

func (s *Store) index(id EntryID) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) find(id EntryID) *Entry {
	if i := s.index(id); i >= 0 {
		return s.entries[i]
	}
	return nil
}

func (s *Store) atSlot(slot int) *Entry {
	for _, e := range s.entries {
		if e.Slot == slot {
			return e
		}
	}
	return nil
}

func (s *Store) definition(e *Entry) *item.Definition {
	if inst, ok := s.instances[e.Instance]; ok {
		return inst.Definition
	}
	return nil
}

// addEntry appends a new entry owning inst.
//
// Precondition: inst non-nil and not owned by any entry; quantity > 0.
// Postcondition: the new entry is last in list order and marked created.
func (s *Store) addEntry(inst *item.Instance, quantity, slot int) Entry {
	e := &Entry{
		ID:         uuid.New(),
		Instance:   inst.ID,
		Definition: inst.Definition.ID,
		Quantity:   quantity,
		Slot:       slot,
	}
	s.instances[inst.ID] = inst
	s.entries = append(s.entries, e)
	s.tracker.Created(e.ID)
	s.listener.entryAdded(*e)
	return *e
}

// removeQuantity decrements the entry by amount, deleting it and its
// instance at zero.
//
// Postcondition: returns false with no change when id is unknown,
// amount <= 0, or amount exceeds the entry's quantity.
func (s *Store) removeQuantity(id EntryID, amount int) bool {
	i := s.index(id)
	if i < 0 || amount <= 0 || amount > s.entries[i].Quantity {
		return false
	}
	e := s.entries[i]
	e.Quantity -= amount
	if e.Quantity > 0 {
		s.tracker.Updated(e.ID)
		s.listener.entryChanged(*e)
		return true
	}
	removed := *e
	removed.Quantity += amount
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.instances, e.Instance)
	s.tracker.Deleted(e.ID)
	s.listener.entryRemoved(removed)
	return true
}

// addQuantity increases an existing entry's quantity.
//
// Precondition: amount > 0 and the stack limit is respected by the caller.
func (s *Store) addQuantity(e *Entry, amount int) {
	e.Quantity += amount
	s.tracker.Updated(e.ID)
	s.listener.entryChanged(*e)
}

// setSlot reassigns an entry's slot.
func (s *Store) setSlot(e *Entry, slot int) {
	e.Slot = slot
	s.tracker.Updated(e.ID)
	s.listener.entryChanged(*e)
}

// swapSlots exchanges the slots of a and b, leaving the store consistent
// before either notification fires.
func (s *Store) swapSlots(a, b *Entry) {
	a.Slot, b.Slot = b.Slot, a.Slot
	s.tracker.Updated(a.ID)
	s.tracker.Updated(b.ID)
	s.listener.entryChanged(*a)
	s.listener.entryChanged(*b)
}
