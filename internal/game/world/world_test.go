package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/game/item"
	"github.com/cory-johannsen/stockpile/internal/game/loot"
	"github.com/cory-johannsen/stockpile/internal/game/world"
)

func potion() *item.Definition {
	return &item.Definition{ID: "potion", Name: "Potion", Fragments: item.Fragments{
		&item.Stackable{MaxStack: 5},
		&item.WorldMesh{StaticMesh: "meshes/potion"},
	}}
}

func TestActor_ImplementsOwner(t *testing.T) {
	var o inventory.Owner = world.NewActor("p1", true)
	assert.Equal(t, "p1", o.OwnerID())
	assert.True(t, o.HasAuthority())
	assert.Panics(t, func() { world.NewActor("", true) })
}

func TestPickup_ConsumedOnFullAdd(t *testing.T) {
	c := inventory.MustNewContainer(inventory.Options{MaxSlots: 4})
	p, err := world.NewPickup(potion(), 7, zaptest.NewLogger(t))
	require.NoError(t, err)
	mesh, ok := p.Mesh()
	require.True(t, ok)
	assert.Equal(t, "meshes/potion", mesh)

	require.NoError(t, p.TryPickup(c))
	assert.True(t, p.Consumed())
	assert.Equal(t, 0, p.Quantity())
	assert.Equal(t, 7, c.Quantity("potion"))

	assert.ErrorIs(t, p.TryPickup(c), world.ErrConsumed)
	assert.Equal(t, 7, c.Quantity("potion"))
}

func TestPickup_PartialAddKeepsRemainder(t *testing.T) {
	c := inventory.MustNewContainer(inventory.Options{MaxSlots: 1})
	p, err := world.NewPickup(potion(), 8, nil)
	require.NoError(t, err)

	err = p.TryPickup(c)
	require.ErrorIs(t, err, inventory.ErrCapacityExceeded)
	assert.False(t, p.Consumed())
	assert.Equal(t, 3, p.Quantity())
	assert.Equal(t, 5, c.Quantity("potion"))
}

func TestPickup_NoAuthorityLeavesPickup(t *testing.T) {
	c := inventory.MustNewContainer(inventory.Options{MaxSlots: 1, Owner: world.NewActor("remote", false)})
	p, err := world.NewPickup(potion(), 2, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, p.TryPickup(c), inventory.ErrNoAuthority)
	assert.Equal(t, 2, p.Quantity())
}

func TestPickup_NilContainerLeavesPickup(t *testing.T) {
	p, err := world.NewPickup(potion(), 2, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, p.TryPickup(nil), inventory.ErrInvalidArgument)
	assert.Equal(t, 2, p.Quantity())
	assert.False(t, p.Consumed())
}

func TestNewPickup_Rejects(t *testing.T) {
	_, err := world.NewPickup(nil, 1, nil)
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)
	_, err = world.NewPickup(potion(), 0, nil)
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)
}

func TestNewStorage_DefaultsAndLoot(t *testing.T) {
	reg := item.NewRegistry()
	require.NoError(t, reg.Register(potion()))
	gen := loot.NewGenerator(&loot.Table{ID: "chest", MinRolls: 2, MaxRolls: 2, Entries: []loot.Entry{
		{Item: "potion", MinQuantity: 1, MaxQuantity: 1, Weight: 1},
	}}, reg, nil)

	s, err := world.NewStorage(world.NewActor("server", true), world.StorageOptions{Loot: gen, Seed: 3})
	require.NoError(t, err)
	assert.Equal(t, world.DefaultStorageSlots, s.Container.MaxSlots())
	assert.Equal(t, inventory.KindStorage, s.Container.Kind())
	assert.Equal(t, 2, s.Container.Quantity("potion"))
	assert.Equal(t, 2, s.Loot.Placed())

	client, err := world.NewStorage(world.NewActor("client", false), world.StorageOptions{Loot: gen, Seed: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, client.Container.Len(), "non-authoritative storage is not seeded")

	_, err = world.NewStorage(nil, world.StorageOptions{})
	assert.ErrorIs(t, err, inventory.ErrInvalidArgument)
}
