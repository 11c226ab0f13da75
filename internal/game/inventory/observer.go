package inventory

// Observer receives a container's change notifications. Every callback gets
// copies; observers can never mutate the container through them.
//
// Within one mutation, ItemAdded, ItemRemoved and ItemChanged fire in the
// order the changes occur, followed by exactly one Refreshed.
type Observer interface {
	ItemAdded(e Entry)
	ItemRemoved(e Entry)
	ItemChanged(e Entry)
	Refreshed(entries []Entry)
	MaxSlotsChanged(maxSlots int)
}

// ObserverFuncs adapts optional functions to Observer. Nil fields are
// ignored.
type ObserverFuncs struct {
	OnItemAdded       func(Entry)
	OnItemRemoved     func(Entry)
	OnItemChanged     func(Entry)
	OnRefreshed       func([]Entry)
	OnMaxSlotsChanged func(int)
}

func (f ObserverFuncs) ItemAdded(e Entry) {
	if f.OnItemAdded != nil {
		f.OnItemAdded(e)
	}
}

func (f ObserverFuncs) ItemRemoved(e Entry) {
	if f.OnItemRemoved != nil {
		f.OnItemRemoved(e)
	}
}

func (f ObserverFuncs) ItemChanged(e Entry) {
	if f.OnItemChanged != nil {
		f.OnItemChanged(e)
	}
}

func (f ObserverFuncs) Refreshed(entries []Entry) {
	if f.OnRefreshed != nil {
		f.OnRefreshed(entries)
	}
}

func (f ObserverFuncs) MaxSlotsChanged(n int) {
	if f.OnMaxSlotsChanged != nil {
		f.OnMaxSlotsChanged(n)
	}
}

// Subscription ties an Observer to an event source until Unsubscribe.
type Subscription struct {
	id  uint64
	hub *observers
}

// Unsubscribe stops delivery. It is idempotent and safe to call from inside
// a callback.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.hub == nil {
		return
	}
	s.hub.remove(s.id)
	s.hub = nil
}

// observers is an ordered subscriber list. Dispatch iterates over a copy so
// callbacks may subscribe or unsubscribe.
type observers struct {
	next uint64
	subs []subscriber
}

type subscriber struct {
	id  uint64
	obs Observer
}

func (h *observers) add(o Observer) *Subscription {
	h.next++
	h.subs = append(h.subs, subscriber{id: h.next, obs: o})
	return &Subscription{id: h.next, hub: h}
}

func (h *observers) remove(id uint64) {
	for i, s := range h.subs {
		if s.id == id {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return
		}
	}
}

func (h *observers) len() int {
	return len(h.subs)
}

func (h *observers) each(fn func(Observer)) {
	subs := h.subs
	for _, s := range subs {
		fn(s.obs)
	}
}
