package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/game/item"
)

var propertyDefs = []*item.Definition{
	stackDef("ore", 5),
	stackDef("potion", 3),
	plainDef("sword"),
}

func pickEntry(rt *rapid.T, c *inventory.Container, label string) (inventory.Entry, bool) {
	snap := c.Snapshot()
	if len(snap) == 0 {
		return inventory.Entry{}, false
	}
	return snap[rapid.IntRange(0, len(snap)-1).Draw(rt, label)], true
}

func totals(cs ...*inventory.Container) map[string]int {
	out := map[string]int{}
	for _, c := range cs {
		for _, e := range c.Snapshot() {
			out[e.Definition] += e.Quantity
		}
	}
	return out
}

func checkInvariants(rt *rapid.T, c *inventory.Container) {
	snap := c.Snapshot()
	if c.MaxSlots() > 0 {
		assert.LessOrEqual(rt, len(snap), c.MaxSlots(), "entry count within max slots")
	}
	slots := map[int]bool{}
	for _, e := range snap {
		assert.Greater(rt, e.Quantity, 0, "quantity positive")
		def, ok := c.Definition(e.ID)
		require.True(rt, ok)
		assert.LessOrEqual(rt, e.Quantity, def.MaxStack(), "stack bound")
		if c.MaxSlots() > 0 {
			assert.False(rt, slots[e.Slot], "slot %d used twice", e.Slot)
			assert.Less(rt, e.Slot, c.MaxSlots())
			assert.GreaterOrEqual(rt, e.Slot, 0)
		}
		slots[e.Slot] = true
	}
}

// TestContainers_Invariants_Property drives two containers and a mirror of
// each through random operations, checking conservation, slot uniqueness,
// the stack bound, split-move rollback and mirror convergence.
func TestContainers_Invariants_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := inventory.MustNewContainer(inventory.Options{ID: "a", MaxSlots: rapid.IntRange(1, 6).Draw(rt, "slotsA")})
		b := inventory.MustNewContainer(inventory.Options{ID: "b", MaxSlots: rapid.IntRange(0, 4).Draw(rt, "slotsB")})
		ma, mb := inventory.NewMirror("a"), inventory.NewMirror("b")
		expected := map[string]int{}

		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			src, dst := a, b
			if rapid.Bool().Draw(rt, "flip") {
				src, dst = b, a
			}
			switch rapid.IntRange(0, 6).Draw(rt, "op") {
			case 0:
				def := rapid.SampledFrom(propertyDefs).Draw(rt, "def")
				placed, _ := src.AddItem(def, rapid.IntRange(1, 12).Draw(rt, "qty"))
				expected[def.ID] += placed
			case 1:
				if e, ok := pickEntry(rt, src, "remove"); ok {
					q := rapid.IntRange(1, e.Quantity).Draw(rt, "rq")
					require.NoError(rt, src.RemoveItem(e.ID, q))
					expected[e.Definition] -= q
				}
			case 2:
				if e, ok := pickEntry(rt, src, "split"); ok {
					_, _ = src.SplitStack(e.ID, rapid.IntRange(0, e.Quantity).Draw(rt, "sq"))
				}
			case 3:
				if e, ok := pickEntry(rt, src, "move"); ok {
					slot := rapid.IntRange(-1, 5).Draw(rt, "mslot")
					_, _ = src.MoveToContainer(dst, e.ID, rapid.IntRange(0, e.Quantity).Draw(rt, "mq"), slot)
				}
			case 4:
				if e, ok := pickEntry(rt, src, "splitmove"); ok {
					before := src.Snapshot()
					slot := rapid.IntRange(-1, 5).Draw(rt, "smslot")
					q := rapid.IntRange(1, e.Quantity).Draw(rt, "smq")
					if err := src.SplitAndMove(e.ID, q, dst, slot); err != nil {
						assert.Equal(rt, before, src.Snapshot(), "failed split-move restores the source")
					}
				}
			case 5:
				if e, ok := pickEntry(rt, src, "reslot"); ok {
					_ = src.MoveToSlot(e.ID, rapid.IntRange(-1, 6).Draw(rt, "rslot"))
				}
			case 6:
				_ = src.SwapItems(rapid.IntRange(0, 5).Draw(rt, "sa"), rapid.IntRange(0, 5).Draw(rt, "sb"))
			}

			checkInvariants(rt, a)
			checkInvariants(rt, b)
			got := totals(a, b)
			for id, want := range expected {
				assert.Equal(rt, want, got[id], "conservation of %s", id)
			}

			if rapid.Bool().Draw(rt, "sync") {
				require.NoError(rt, ma.Apply(a.Delta(ma.Version())))
				require.NoError(rt, mb.Apply(b.Delta(mb.Version())))
			}
		}

		require.NoError(rt, ma.Apply(a.Delta(ma.Version())))
		require.NoError(rt, mb.Apply(b.Delta(mb.Version())))
		assert.Equal(rt, a.Snapshot(), ma.Snapshot())
		assert.Equal(rt, b.Snapshot(), mb.Snapshot())
		assert.Equal(rt, a.MaxSlots(), ma.MaxSlots())
	})
}
