package world

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/game/item"
	"github.com/cory-johannsen/stockpile/internal/observability"
)

// ErrConsumed is returned by TryPickup once the pickup has been collected.
var ErrConsumed = errors.New("pickup already consumed")

// Pickup is an item stack lying in the world. It is consumed once a
// container accepts its whole quantity.
type Pickup struct {
	Definition *item.Definition
	quantity   int
	consumed   bool
	logger     *zap.Logger
}

// NewPickup returns a Pickup of quantity units of def.
//
// Precondition: def non-nil; quantity > 0.
func NewPickup(def *item.Definition, quantity int, logger *zap.Logger) (*Pickup, error) {
	if def == nil {
		return nil, fmt.Errorf("world: NewPickup: %w: nil definition", inventory.ErrInvalidArgument)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("world: NewPickup: %w: quantity %d", inventory.ErrInvalidArgument, quantity)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pickup{Definition: def, quantity: quantity, logger: logger}, nil
}

// Quantity returns the units still lying in the world.
func (p *Pickup) Quantity() int { return p.quantity }

// Consumed reports whether the pickup has been fully collected.
func (p *Pickup) Consumed() bool { return p.consumed }

// Mesh returns the world mesh reference of the definition, if it has one.
func (p *Pickup) Mesh() (string, bool) {
	w, ok := p.Definition.WorldMesh()
	if !ok {
		return "", false
	}
	return w.Mesh(), w.Mesh() != ""
}

// TryPickup adds the pickup's stack to c. On full acceptance the pickup is
// consumed. On partial acceptance the placed units leave the pickup and the
// remainder stays in the world.
//
// Precondition: c non-nil.
// Postcondition: units placed in c + Quantity() equals the quantity before
// the call.
func (p *Pickup) TryPickup(c *inventory.Container) error {
	if p.consumed {
		return fmt.Errorf("world: Pickup.TryPickup: %w", ErrConsumed)
	}
	if c == nil {
		return fmt.Errorf("world: Pickup.TryPickup: %w: nil container", inventory.ErrInvalidArgument)
	}
	placed, err := c.AddItem(p.Definition, p.quantity)
	p.quantity -= placed
	if p.quantity == 0 {
		p.consumed = true
		p.logger.Debug("pickup consumed", zap.String("item", p.Definition.ID), observability.Container(c.ID()))
	}
	if err != nil {
		return fmt.Errorf("world: Pickup.TryPickup: %w", err)
	}
	return nil
}
