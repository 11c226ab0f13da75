package inventory

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/stockpile/internal/game/item"
	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

// EntryID identifies an entry. IDs are never reused or reassigned.
type EntryID = uuid.UUID

// Unassigned is the Slot value of an entry with no slot.
const Unassigned = -1

// NoSlot selects whole-container mode in MoveToContainer and SplitAndMove.
const NoSlot = -1

// Entry is one stack: an owned item instance, a quantity and a slot.
//
// Invariant: Quantity > 0 for every live entry.
type Entry struct {
	ID         EntryID         `json:"id"`
	Instance   item.InstanceID `json:"instance"`
	Definition string          `json:"definition"`
	Quantity   int             `json:"quantity"`
	Slot       int             `json:"slot"`
}

// String renders the entry for logs.
func (e Entry) String() string {
	return fmt.Sprintf("%s(%s x%d @%d)", e.ID, e.Definition, e.Quantity, e.Slot)
}

// Kind classifies a container.
type Kind string

const (
	KindGeneric Kind = "generic"
	KindPlayer  Kind = "player"
	KindHotbar  Kind = "hotbar"
	KindStorage Kind = "storage"
)

// ContainerTag is the root of the container context tags.
const ContainerTag tag.Tag = "Inventory.Container"

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindGeneric, KindPlayer, KindHotbar, KindStorage:
		return true
	}
	return false
}

// Tag returns the context tag for k, e.g. "Inventory.Container.Hotbar".
func (k Kind) Tag() tag.Tag {
	switch k {
	case KindPlayer:
		return ContainerTag + ".Player"
	case KindHotbar:
		return ContainerTag + ".Hotbar"
	case KindStorage:
		return ContainerTag + ".Storage"
	default:
		return ContainerTag + ".Generic"
	}
}

// Kinds returns every known kind.
func Kinds() []Kind {
	return []Kind{KindGeneric, KindPlayer, KindHotbar, KindStorage}
}
