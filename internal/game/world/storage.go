package world

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/game/loot"
	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

// DefaultStorageSlots is the slot count of a storage container when none is
// configured.
const DefaultStorageSlots = 8

// StorageOptions configures NewStorage.
type StorageOptions struct {
	ID       string
	MaxSlots int
	Filter   tag.Query
	Tags     []tag.Tag
	// Loot, when set, seeds the container on creation if the owner has
	// authority.
	Loot   *loot.Generator
	Seed   uint64
	Logger *zap.Logger
}

// Storage is a chest-like actor owning one storage container.
type Storage struct {
	Owner     *Actor
	Container *inventory.Container
	// Loot holds the seeding result; it is empty when no table was rolled.
	Loot loot.Result
}

// NewStorage creates a storage container owned by owner and, when a loot
// generator is configured and owner has authority, fills it.
//
// Precondition: owner must be non-nil.
func NewStorage(owner *Actor, opts StorageOptions) (*Storage, error) {
	if owner == nil {
		return nil, fmt.Errorf("world: NewStorage: %w: nil owner", inventory.ErrInvalidArgument)
	}
	if opts.MaxSlots == 0 {
		opts.MaxSlots = DefaultStorageSlots
	}
	c, err := inventory.NewContainer(inventory.Options{
		ID:       opts.ID,
		Kind:     inventory.KindStorage,
		MaxSlots: opts.MaxSlots,
		Filter:   opts.Filter,
		Tags:     opts.Tags,
		Owner:    owner,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("world: NewStorage: %w", err)
	}
	s := &Storage{Owner: owner, Container: c}
	if opts.Loot != nil && owner.HasAuthority() {
		res, err := opts.Loot.Generate(c, opts.Seed)
		if err != nil {
			return nil, fmt.Errorf("world: NewStorage: %w", err)
		}
		s.Loot = res
	}
	return s, nil
}
