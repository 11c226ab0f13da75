package inventory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stockpile/internal/game/item"
)

// SwapItems exchanges the contents of slots a and b. When only one slot is
// occupied its entry moves into the other slot.
//
// Precondition: a != b; both are valid slots for this container.
func (c *Container) SwapItems(a, b int) error {
	const op = "inventory: Container.SwapItems"
	if err := c.checkAuthority(op); err != nil {
		return err
	}
	if a == b {
		return c.reject(op, fmt.Errorf("%w: identical slots %d", ErrInvalidArgument, a))
	}
	if err := c.validSlot(a); err != nil {
		return c.reject(op, err)
	}
	if err := c.validSlot(b); err != nil {
		return c.reject(op, err)
	}
	ea, eb := c.store.atSlot(a), c.store.atSlot(b)
	if ea == nil && eb == nil {
		return c.reject(op, fmt.Errorf("%w: slots %d and %d are empty", ErrNotFound, a, b))
	}

	c.begin()
	defer c.end()
	switch {
	case ea != nil && eb != nil:
		c.store.swapSlots(ea, eb)
	case ea != nil:
		c.store.setSlot(ea, b)
	default:
		c.store.setSlot(eb, a)
	}
	return nil
}

// validSlot checks slot against the container's range: [0, MaxSlots) when
// finite, non-negative otherwise.
func (c *Container) validSlot(slot int) error {
	if slot < 0 || (c.maxSlots > 0 && slot >= c.maxSlots) {
		return fmt.Errorf("%w: slot %d out of range (max %d)", ErrInvalidArgument, slot, c.maxSlots)
	}
	return nil
}

// SplitStack moves quantity units of the entry with id into a new entry in
// the first free slot and returns the new entry's id.
//
// Precondition: 0 < quantity < source quantity; the container has a free
// slot.
func (c *Container) SplitStack(id EntryID, quantity int) (EntryID, error) {
	const op = "inventory: Container.SplitStack"
	if err := c.checkAuthority(op); err != nil {
		return EntryID{}, err
	}
	c.begin()
	defer c.end()
	newID, err := c.split(id, quantity)
	if err != nil {
		return EntryID{}, c.reject(op, err)
	}
	return newID, nil
}

func (c *Container) split(id EntryID, quantity int) (EntryID, error) {
	src := c.store.find(id)
	if src == nil {
		return EntryID{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if quantity <= 0 || quantity >= src.Quantity {
		return EntryID{}, fmt.Errorf("%w: split %d of %d", ErrInvalidArgument, quantity, src.Quantity)
	}
	if c.full() {
		return EntryID{}, fmt.Errorf("%w: no slot for split stack", ErrCapacityExceeded)
	}
	def := c.store.definition(src)
	c.store.removeQuantity(id, quantity)
	e := c.store.addEntry(c.factory.New(def), quantity, c.FindFirstFreeSlot())
	return e.ID, nil
}

// MoveToContainer transfers up to quantity units of the entry with id into
// target and returns the amount moved. A quantity <= 0 or above the entry's
// quantity moves the whole entry.
//
// With targetSlot == NoSlot the move is all or nothing: the target must be
// able to accept the whole quantity, otherwise neither container changes.
// With a target slot, a compatible stack there absorbs as much as fits and
// the remainder stays in the source; an empty slot receives the whole
// quantity as a new entry; an incompatible occupant fails the move.
//
// Moving within the same container delegates to MoveToSlot.
func (c *Container) MoveToContainer(target *Container, id EntryID, quantity, targetSlot int) (int, error) {
	const op = "inventory: Container.MoveToContainer"
	if err := c.checkAuthority(op); err != nil {
		return 0, err
	}
	if target == nil {
		return 0, c.reject(op, fmt.Errorf("%w: nil target", ErrInvalidArgument))
	}
	if err := target.checkAuthority(op); err != nil {
		return 0, err
	}
	c.begin()
	defer c.end()
	target.begin()
	defer target.end()

	moved, err := c.moveTo(target, id, quantity, targetSlot)
	if err != nil {
		return 0, c.reject(op, err)
	}
	return moved, nil
}

func (c *Container) moveTo(target *Container, id EntryID, quantity, targetSlot int) (int, error) {
	src := c.store.find(id)
	if src == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if quantity <= 0 || quantity > src.Quantity {
		quantity = src.Quantity
	}
	if target == c {
		if targetSlot < 0 {
			return 0, fmt.Errorf("%w: same-container move needs a slot", ErrInvalidArgument)
		}
		return c.moveToSlot(id, targetSlot)
	}
	def := c.store.definition(src)
	if !target.Accepts(def) {
		return 0, fmt.Errorf("%w: target %s refuses %q", ErrFilterRejected, target.id, def.ID)
	}

	if targetSlot < 0 {
		if room := target.Room(def); room < quantity {
			return 0, fmt.Errorf("%w: target %s has room for %d of %d", ErrCapacityExceeded, target.id, room, quantity)
		}
		target.add(def, quantity)
		c.store.removeQuantity(id, quantity)
		c.logTransfer(target, def, quantity)
		return quantity, nil
	}

	if err := target.validSlot(targetSlot); err != nil {
		return 0, err
	}
	if occ := target.store.atSlot(targetSlot); occ != nil {
		if !stackable(def) || occ.Definition != def.ID {
			return 0, fmt.Errorf("%w: slot %d holds %q", ErrIncompatibleMerge, targetSlot, occ.Definition)
		}
		space := def.MaxStack() - occ.Quantity
		if space <= 0 {
			return 0, fmt.Errorf("%w: stack in slot %d is full", ErrCapacityExceeded, targetSlot)
		}
		transfer := min(space, quantity)
		target.store.addQuantity(occ, transfer)
		c.store.removeQuantity(id, transfer)
		c.logTransfer(target, def, transfer)
		return transfer, nil
	}
	if target.full() {
		return 0, fmt.Errorf("%w: target %s is full", ErrCapacityExceeded, target.id)
	}
	target.store.addEntry(target.factory.New(def), quantity, targetSlot)
	c.store.removeQuantity(id, quantity)
	c.logTransfer(target, def, quantity)
	return quantity, nil
}

func (c *Container) logTransfer(target *Container, def *item.Definition, quantity int) {
	c.logger.Debug("items transferred",
		zap.String("target", target.id),
		zap.String("definition", def.ID),
		zap.Int("quantity", quantity),
	)
}

func stackable(def *item.Definition) bool {
	_, ok := def.Stackable()
	return ok
}

// SplitAndMove splits quantity units off the entry with sourceID and moves
// the new stack to targetSlot in target. If the move fails the split is
// undone: the split units merge back into the source entry and the
// temporary entry is deleted. A partial merge folds the untransferred
// remainder back the same way.
//
// Postcondition: on error the source container holds the same entries,
// quantities and ids as before the call.
func (c *Container) SplitAndMove(sourceID EntryID, quantity int, target *Container, targetSlot int) error {
	const op = "inventory: Container.SplitAndMove"
	if err := c.checkAuthority(op); err != nil {
		return err
	}
	if target == nil {
		return c.reject(op, fmt.Errorf("%w: nil target", ErrInvalidArgument))
	}
	if err := target.checkAuthority(op); err != nil {
		return err
	}
	c.begin()
	defer c.end()
	target.begin()
	defer target.end()

	tmpID, err := c.split(sourceID, quantity)
	if err != nil {
		return c.reject(op, err)
	}
	if target == c {
		if targetSlot < 0 {
			return nil
		}
		if tmp := c.store.find(tmpID); tmp != nil && tmp.Slot == targetSlot {
			return nil
		}
	}

	var moveErr error
	if target == c {
		_, moveErr = c.moveToSlot(tmpID, targetSlot)
		if moveErr == nil {
			// A swap or empty-slot move leaves the new stack in targetSlot.
			if tmp := c.store.find(tmpID); tmp == nil || tmp.Slot == targetSlot {
				return nil
			}
		}
	} else {
		_, moveErr = c.moveTo(target, tmpID, quantity, targetSlot)
	}
	c.foldBack(tmpID, sourceID)
	if moveErr != nil {
		return c.reject(op, moveErr)
	}
	return nil
}

// foldBack merges whatever is left of the temporary entry into the source
// entry. If the source no longer exists the temporary entry is kept rather
// than destroying items.
func (c *Container) foldBack(tmpID, sourceID EntryID) {
	tmp := c.store.find(tmpID)
	if tmp == nil {
		return
	}
	src := c.store.find(sourceID)
	if src == nil {
		c.logger.Warn("split source vanished; keeping split stack", zap.Stringer("entry", *tmp))
		return
	}
	left := tmp.Quantity
	c.store.addQuantity(src, left)
	c.store.removeQuantity(tmpID, left)
}

// MoveToSlot moves the entry with id to slot within this container. A
// compatible stack with room absorbs as much as fits. Any other occupant,
// including a full compatible stack, trades slots with the entry. An empty
// slot is simply assigned.
func (c *Container) MoveToSlot(id EntryID, slot int) error {
	const op = "inventory: Container.MoveToSlot"
	if err := c.checkAuthority(op); err != nil {
		return err
	}
	c.begin()
	defer c.end()
	if _, err := c.moveToSlot(id, slot); err != nil {
		return c.reject(op, err)
	}
	return nil
}

func (c *Container) moveToSlot(id EntryID, slot int) (int, error) {
	src := c.store.find(id)
	if src == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if c.maxSlots > 0 {
		if err := c.validSlot(slot); err != nil {
			return 0, err
		}
	} else {
		slot = max(0, slot)
	}
	if slot == src.Slot {
		return 0, fmt.Errorf("%w: entry already in slot %d", ErrInvalidArgument, slot)
	}

	occ := c.store.atSlot(slot)
	if occ == nil {
		c.store.setSlot(src, slot)
		return src.Quantity, nil
	}
	def := c.store.definition(src)
	if stackable(def) && occ.Definition == def.ID {
		// A full stack trades places like any other occupant.
		if space := def.MaxStack() - occ.Quantity; space > 0 {
			transfer := min(space, src.Quantity)
			c.store.addQuantity(occ, transfer)
			c.store.removeQuantity(id, transfer)
			return transfer, nil
		}
	}
	c.store.swapSlots(src, occ)
	return src.Quantity, nil
}
