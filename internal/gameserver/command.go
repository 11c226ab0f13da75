package gameserver

import (
	"fmt"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/game/loot"
	"github.com/cory-johannsen/stockpile/internal/replication"
)

// Op names a container mutation.
type Op string

const (
	OpAdd          Op = "add"
	OpRemove       Op = "remove"
	OpSwap         Op = "swap"
	OpSplit        Op = "split"
	OpMove         Op = "move"
	OpMoveSlot     Op = "move_slot"
	OpSplitMove    Op = "split_move"
	OpGenerateLoot Op = "generate_loot"
	OpSetMaxSlots  Op = "set_max_slots"
)

// Command is a mutation request executed on the loop goroutine.
type Command struct {
	Op        Op     `json:"op"`
	Container string `json:"container"`
	// Target is the destination container of move and split_move.
	Target string `json:"target,omitempty"`
	// Item is the definition id for add.
	Item  string            `json:"item,omitempty"`
	Entry inventory.EntryID `json:"entry"`
	// Quantity is the unit count; for set_max_slots it is the new limit.
	Quantity int `json:"quantity,omitempty"`
	// Slot is the target slot; nil selects whole-container mode for moves.
	Slot *int `json:"slot,omitempty"`
	// SlotB is the second slot of a swap.
	SlotB int    `json:"slot_b,omitempty"`
	Table string `json:"table,omitempty"`
	Seed  uint64 `json:"seed,omitempty"`
}

// Slot returns a pointer to n, for building commands.
func Slot(n int) *int { return &n }

func (c Command) slot() int {
	if c.Slot == nil {
		return inventory.NoSlot
	}
	return *c.Slot
}

// Result is the outcome of a successful Command.
type Result struct {
	// Count is the quantity placed, moved or rolled.
	Count int `json:"count"`
	// Entry is the new entry created by split.
	Entry   inventory.EntryID   `json:"entry"`
	Version replication.Version `json:"version"`
}

// execute runs cmd against the loop's containers.
//
// Precondition: called on the loop goroutine.
func (l *Loop) execute(cmd Command) (Result, error) {
	c, err := l.container(cmd.Container)
	if err != nil {
		return Result{}, err
	}
	var res Result
	switch cmd.Op {
	case OpAdd:
		def, ok := l.catalog.Definition(cmd.Item)
		if !ok {
			return Result{}, fmt.Errorf("gameserver: add: %w: item %q", inventory.ErrNotFound, cmd.Item)
		}
		res.Count, err = c.AddItem(def, cmd.Quantity)
	case OpRemove:
		err = c.RemoveItem(cmd.Entry, cmd.Quantity)
		if err == nil {
			res.Count = cmd.Quantity
		}
	case OpSwap:
		err = c.SwapItems(cmd.slot(), cmd.SlotB)
	case OpSplit:
		res.Entry, err = c.SplitStack(cmd.Entry, cmd.Quantity)
		if err == nil {
			res.Count = cmd.Quantity
		}
	case OpMove:
		target, terr := l.container(cmd.Target)
		if terr != nil {
			return Result{}, terr
		}
		res.Count, err = c.MoveToContainer(target, cmd.Entry, cmd.Quantity, cmd.slot())
	case OpMoveSlot:
		err = c.MoveToSlot(cmd.Entry, cmd.slot())
	case OpSplitMove:
		target, terr := l.container(cmd.Target)
		if terr != nil {
			return Result{}, terr
		}
		err = c.SplitAndMove(cmd.Entry, cmd.Quantity, target, cmd.slot())
		if err == nil {
			res.Count = cmd.Quantity
		}
	case OpGenerateLoot:
		table, ok := l.tables[cmd.Table]
		if !ok {
			return Result{}, fmt.Errorf("gameserver: generate_loot: %w: table %q", inventory.ErrNotFound, cmd.Table)
		}
		var lr loot.Result
		lr, err = loot.NewGenerator(table, l.catalog, l.logger).Generate(c, cmd.Seed)
		res.Count = lr.Placed()
	case OpSetMaxSlots:
		err = c.SetMaxSlots(cmd.Quantity)
	default:
		return Result{}, fmt.Errorf("gameserver: %w: unknown op %q", inventory.ErrInvalidArgument, cmd.Op)
	}
	res.Version = c.Version()
	return res, err
}
