package inventory_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/game/item"
	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

func stackDef(id string, maxStack int, tags ...tag.Tag) *item.Definition {
	return &item.Definition{
		ID:        id,
		Name:      id,
		Tags:      tags,
		Fragments: item.Fragments{&item.Stackable{MaxStack: maxStack}},
	}
}

func plainDef(id string, tags ...tag.Tag) *item.Definition {
	return &item.Definition{ID: id, Name: id, Tags: tags}
}

func newContainer(t testing.TB, maxSlots int) *inventory.Container {
	t.Helper()
	c, err := inventory.NewContainer(inventory.Options{
		MaxSlots: maxSlots,
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return c
}

func add(t testing.TB, c *inventory.Container, def *item.Definition, qty int) inventory.Entry {
	t.Helper()
	placed, err := c.AddItem(def, qty)
	require.NoError(t, err)
	require.Equal(t, qty, placed)
	snap := c.Snapshot()
	return snap[len(snap)-1]
}

type owner struct {
	id        string
	authority bool
}

func (o owner) OwnerID() string    { return o.id }
func (o owner) HasAuthority() bool { return o.authority }

// recorder captures notifications as short strings.
type recorder struct {
	events    []string
	refreshes int
	last      []inventory.Entry
	maxSlots  []int
}

func (r *recorder) ItemAdded(e inventory.Entry) {
	r.events = append(r.events, fmt.Sprintf("added %s x%d", e.Definition, e.Quantity))
}

func (r *recorder) ItemRemoved(e inventory.Entry) {
	r.events = append(r.events, fmt.Sprintf("removed %s x%d", e.Definition, e.Quantity))
}

func (r *recorder) ItemChanged(e inventory.Entry) {
	r.events = append(r.events, fmt.Sprintf("changed %s x%d", e.Definition, e.Quantity))
}

func (r *recorder) Refreshed(entries []inventory.Entry) {
	r.refreshes++
	r.last = entries
}

func (r *recorder) MaxSlotsChanged(n int) {
	r.maxSlots = append(r.maxSlots, n)
}

func (r *recorder) reset() {
	r.events = nil
	r.refreshes = 0
}
