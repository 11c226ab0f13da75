// Package inventory implements the authoritative container engine: an
// ordered entry store wrapped by a Container that enforces capacity,
// stacking and acceptance rules, moves stacks within and across containers,
// and exposes replication frames and change notifications.
//
// Containers do no locking. Every mutation of a container must run on the
// single goroutine that owns it.
package inventory

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/stockpile/internal/game/item"
	"github.com/cory-johannsen/stockpile/internal/game/tag"
	"github.com/cory-johannsen/stockpile/internal/observability"
	"github.com/cory-johannsen/stockpile/internal/replication"
)

// Owner is the actor holding a container. Only an owner with authority may
// mutate it.
type Owner interface {
	OwnerID() string
	HasAuthority() bool
}

// Options configures NewContainer.
type Options struct {
	// ID names the container; a random UUID is used when empty.
	ID   string
	Kind Kind
	// MaxSlots bounds the entry count; 0 means unlimited.
	MaxSlots int
	// Filter is the acceptance predicate over a definition's combined tags.
	// The empty query accepts everything.
	Filter tag.Query
	// Tags are extra context tags reported alongside the kind tag.
	Tags []tag.Tag
	// Owner may be nil, in which case the container is authoritative.
	Owner  Owner
	Logger *zap.Logger
}

// Container wraps a Store with capacity, an acceptance filter and the public
// mutation API.
//
// Invariant: when MaxSlots() > 0, Len() <= MaxSlots() and no two entries
// share a slot.
type Container struct {
	id       string
	kind     Kind
	maxSlots int
	filter   tag.Query
	tags     tag.Set
	owner    Owner
	factory  *item.Factory
	store    *Store
	obs      observers
	logger   *zap.Logger

	depth   int
	changes int
}

// NewContainer validates opts and returns an empty Container.
//
// Postcondition: Len() == 0.
func NewContainer(opts Options) (*Container, error) {
	if opts.Kind == "" {
		opts.Kind = KindGeneric
	}
	if !opts.Kind.Valid() {
		return nil, fmt.Errorf("inventory: NewContainer: %w: unknown kind %q", ErrInvalidArgument, opts.Kind)
	}
	if opts.MaxSlots < 0 {
		return nil, fmt.Errorf("inventory: NewContainer: %w: max slots %d", ErrInvalidArgument, opts.MaxSlots)
	}
	if err := opts.Filter.Validate(); err != nil {
		return nil, fmt.Errorf("inventory: NewContainer: %w: %v", ErrInvalidArgument, err)
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ownerID := ""
	if opts.Owner != nil {
		ownerID = opts.Owner.OwnerID()
	}
	c := &Container{
		id:       opts.ID,
		kind:     opts.Kind,
		maxSlots: opts.MaxSlots,
		filter:   opts.Filter,
		tags:     tag.NewSet(opts.Tags...).Union(tag.NewSet(opts.Kind.Tag())),
		owner:    opts.Owner,
		factory:  item.NewFactory(ownerID),
		logger:   observability.ForContainer(logger, opts.ID, string(opts.Kind), ownerID),
	}
	c.store = newStore(c)
	return c, nil
}

// MustNewContainer is NewContainer that panics on invalid options.
func MustNewContainer(opts Options) *Container {
	c, err := NewContainer(opts)
	if err != nil {
		panic(err.Error())
	}
	return c
}

// ID returns the container's identifier.
func (c *Container) ID() string { return c.id }

// Kind returns the container's kind.
func (c *Container) Kind() Kind { return c.kind }

// MaxSlots returns the slot limit; 0 means unlimited.
func (c *Container) MaxSlots() int { return c.maxSlots }

// Filter returns the acceptance filter.
func (c *Container) Filter() tag.Query { return c.filter }

// ContextTags returns the kind tag together with the configured tags.
func (c *Container) ContextTags() tag.Set { return c.tags }

// Owner returns the owning actor, or nil.
func (c *Container) Owner() Owner { return c.owner }

// HasAuthority reports whether this side may mutate the container.
func (c *Container) HasAuthority() bool {
	return c.owner == nil || c.owner.HasAuthority()
}

// Len returns the number of live entries.
func (c *Container) Len() int { return c.store.Len() }

// Snapshot returns a copy of every entry in list order.
func (c *Container) Snapshot() []Entry { return c.store.Snapshot() }

// Version returns the replication version.
func (c *Container) Version() replication.Version { return c.store.Version() }

// Entry returns a copy of the entry with the given id.
func (c *Container) Entry(id EntryID) (Entry, bool) {
	if e := c.store.find(id); e != nil {
		return *e, true
	}
	return Entry{}, false
}

// EntryAt returns a copy of the entry occupying slot.
func (c *Container) EntryAt(slot int) (Entry, bool) {
	if e := c.store.atSlot(slot); e != nil {
		return *e, true
	}
	return Entry{}, false
}

// Instance returns a copy of the instance owned by the entry with id.
func (c *Container) Instance(id EntryID) (*item.Instance, bool) {
	e := c.store.find(id)
	if e == nil {
		return nil, false
	}
	inst, ok := c.store.instances[e.Instance]
	if !ok {
		return nil, false
	}
	return inst.Clone(), true
}

// Definition returns the definition of the entry with id.
func (c *Container) Definition(id EntryID) (*item.Definition, bool) {
	e := c.store.find(id)
	if e == nil {
		return nil, false
	}
	d := c.store.definition(e)
	return d, d != nil
}

// Quantity returns the total quantity of definition defID.
func (c *Container) Quantity(defID string) int {
	total := 0
	for _, e := range c.store.entries {
		if e.Definition == defID {
			total += e.Quantity
		}
	}
	return total
}

// Subscribe registers o for change notifications until the returned
// Subscription is unsubscribed.
func (c *Container) Subscribe(o Observer) *Subscription {
	return c.obs.add(o)
}

// Accepts reports whether the acceptance filter admits def.
func (c *Container) Accepts(def *item.Definition) bool {
	return def != nil && c.filter.Matches(def.CombinedTags())
}

// FindFirstFreeSlot returns the lowest slot not used by any entry. Finite
// containers scan [0, MaxSlots); unlimited containers scan [0, Len()). When
// every scanned slot is taken the entry count is returned.
func (c *Container) FindFirstFreeSlot() int {
	limit := c.maxSlots
	if limit == 0 {
		limit = c.store.Len()
	}
	used := make(map[int]bool, c.store.Len())
	for _, e := range c.store.entries {
		used[e.Slot] = true
	}
	for i := 0; i < limit; i++ {
		if !used[i] {
			return i
		}
	}
	return c.store.Len()
}

// FreeSlotCount returns max(0, MaxSlots - Len()). It is 0 for unlimited
// containers.
func (c *Container) FreeSlotCount() int {
	return max(0, c.maxSlots-c.store.Len())
}

func (c *Container) full() bool {
	return c.maxSlots > 0 && c.store.Len() >= c.maxSlots
}

// Room returns how many units of def the container could accept right now:
// space left in existing stacks plus free slots times the stack limit.
// Unlimited containers report math.MaxInt.
//
// Postcondition: returns 0 when def is nil or rejected by the filter.
func (c *Container) Room(def *item.Definition) int {
	if !c.Accepts(def) {
		return 0
	}
	if c.maxSlots == 0 {
		return math.MaxInt
	}
	maxStack := def.MaxStack()
	room := c.FreeSlotCount() * maxStack
	if _, ok := def.Stackable(); ok {
		for _, e := range c.store.entries {
			if e.Definition == def.ID && e.Quantity < maxStack {
				room += maxStack - e.Quantity
			}
		}
	}
	return room
}

// SetMaxSlots changes the slot limit. Shrinking below an occupied slot is
// refused.
//
// Postcondition: on success MaxSlotsChanged fires iff the limit changed.
func (c *Container) SetMaxSlots(n int) error {
	const op = "inventory: Container.SetMaxSlots"
	if err := c.checkAuthority(op); err != nil {
		return err
	}
	n = max(0, n)
	if n == c.maxSlots {
		return nil
	}
	if n > 0 {
		if c.store.Len() > n {
			return c.reject(op, fmt.Errorf("%w: %d entries exceed %d slots", ErrCapacityExceeded, c.store.Len(), n))
		}
		for _, e := range c.store.entries {
			if e.Slot >= n {
				return c.reject(op, fmt.Errorf("%w: slot %d is occupied", ErrCapacityExceeded, e.Slot))
			}
		}
	}
	c.maxSlots = n
	c.store.tracker.Touch()
	c.logger.Debug("max slots changed", zap.Int("max_slots", n))
	c.obs.each(func(o Observer) { o.MaxSlotsChanged(n) })
	return nil
}

// AddItem places quantity units of def, topping up existing stacks first
// when def is stackable and then creating new stacks until capacity stops
// it. Placement is best effort: stacks already placed remain when capacity
// runs out.
//
// Postcondition: err == nil iff placed == quantity. On partial placement err
// wraps ErrCapacityExceeded.
func (c *Container) AddItem(def *item.Definition, quantity int) (placed int, err error) {
	const op = "inventory: Container.AddItem"
	if err := c.checkAuthority(op); err != nil {
		return 0, err
	}
	if err := c.checkAddable(op, def, quantity); err != nil {
		return 0, err
	}
	c.begin()
	defer c.end()

	placed = c.add(def, quantity)
	if placed < quantity {
		return placed, c.reject(op, fmt.Errorf("%w: placed %d of %d %q", ErrCapacityExceeded, placed, quantity, def.ID))
	}
	return placed, nil
}

func (c *Container) checkAddable(op string, def *item.Definition, quantity int) error {
	if def == nil {
		return c.reject(op, fmt.Errorf("%w: nil definition", ErrInvalidArgument))
	}
	if quantity <= 0 {
		return c.reject(op, fmt.Errorf("%w: quantity %d", ErrInvalidArgument, quantity))
	}
	if !c.Accepts(def) {
		return c.reject(op, fmt.Errorf("%w: %q", ErrFilterRejected, def.ID))
	}
	return nil
}

// add runs the two placement phases and returns the quantity placed.
func (c *Container) add(def *item.Definition, quantity int) int {
	remaining := quantity
	maxStack := def.MaxStack()

	if _, ok := def.Stackable(); ok {
		for _, e := range c.store.entries {
			if remaining == 0 {
				return quantity
			}
			if e.Definition != def.ID || e.Quantity >= maxStack {
				continue
			}
			take := min(maxStack-e.Quantity, remaining)
			c.store.addQuantity(e, take)
			remaining -= take
		}
	}

	for remaining > 0 {
		if c.full() {
			break
		}
		take := min(remaining, maxStack)
		c.store.addEntry(c.factory.New(def), take, c.FindFirstFreeSlot())
		remaining -= take
	}
	return quantity - remaining
}

// RemoveItem destroys quantity units of the entry with id. The entry is
// deleted when its quantity reaches zero.
func (c *Container) RemoveItem(id EntryID, quantity int) error {
	const op = "inventory: Container.RemoveItem"
	if err := c.checkAuthority(op); err != nil {
		return err
	}
	e := c.store.find(id)
	if e == nil {
		return c.reject(op, fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	if quantity <= 0 || quantity > e.Quantity {
		return c.reject(op, fmt.Errorf("%w: quantity %d of %d", ErrInvalidArgument, quantity, e.Quantity))
	}
	c.begin()
	defer c.end()
	c.store.removeQuantity(id, quantity)
	return nil
}

// Clear removes every entry.
func (c *Container) Clear() error {
	const op = "inventory: Container.Clear"
	if err := c.checkAuthority(op); err != nil {
		return err
	}
	c.begin()
	defer c.end()
	for c.store.Len() > 0 {
		e := c.store.entries[0]
		c.store.removeQuantity(e.ID, e.Quantity)
	}
	return nil
}

func (c *Container) checkAuthority(op string) error {
	if c.HasAuthority() {
		return nil
	}
	return c.reject(op, ErrNoAuthority)
}

// reject logs a refused mutation at debug and returns it wrapped with op.
func (c *Container) reject(op string, err error) error {
	c.logger.Debug("mutation rejected", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

// begin opens a mutation batch; end closes it and fires one Refreshed when
// anything changed inside the outermost batch.
func (c *Container) begin() {
	c.depth++
}

func (c *Container) end() {
	c.depth--
	if c.depth > 0 || c.changes == 0 {
		return
	}
	c.changes = 0
	snap := c.store.Snapshot()
	c.obs.each(func(o Observer) {
		entries := make([]Entry, len(snap))
		copy(entries, snap)
		o.Refreshed(entries)
	})
}

func (c *Container) entryAdded(e Entry) {
	c.changes++
	c.logger.Debug("entry added", zap.Stringer("entry", e))
	c.obs.each(func(o Observer) { o.ItemAdded(e) })
}

func (c *Container) entryRemoved(e Entry) {
	c.changes++
	c.logger.Debug("entry removed", zap.Stringer("entry", e))
	c.obs.each(func(o Observer) { o.ItemRemoved(e) })
}

func (c *Container) entryChanged(e Entry) {
	c.changes++
	c.logger.Debug("entry changed", zap.Stringer("entry", e))
	c.obs.each(func(o Observer) { o.ItemChanged(e) })
}
