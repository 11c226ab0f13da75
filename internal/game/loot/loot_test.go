package loot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/game/item"
	"github.com/cory-johannsen/stockpile/internal/game/loot"
	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

func catalog(t testing.TB) *item.Registry {
	t.Helper()
	reg := item.NewRegistry()
	require.NoError(t, reg.RegisterAll([]*item.Definition{
		{ID: "potion", Name: "Potion", Fragments: item.Fragments{&item.Stackable{MaxStack: 10}}},
		{ID: "ore", Name: "Ore", Fragments: item.Fragments{&item.Stackable{MaxStack: 50}}},
		{ID: "sword", Name: "Sword"},
	}))
	return reg
}

type remote struct{}

func (remote) OwnerID() string    { return "client" }
func (remote) HasAuthority() bool { return false }

func TestLoadTables(t *testing.T) {
	tables, err := loot.LoadTables("testdata")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "cellar", tables[0].ID)
	assert.Equal(t, "miner", tables[1].ID)
	assert.Equal(t, tag.AnyTags, tables[0].Entries[1].Filter.Op)
	assert.Equal(t, "2d4+1", tables[1].Entries[0].Quantity)

	idx, err := loot.NewIndex(tables)
	require.NoError(t, err)
	assert.Contains(t, idx, "miner")
	_, err = loot.NewIndex(append(tables, tables[0]))
	assert.Error(t, err)

	for _, tb := range tables {
		assert.NoError(t, tb.CheckItems(catalog(t)))
	}
}

func TestTable_Validate(t *testing.T) {
	cases := map[string]loot.Table{
		"empty id":       {MaxRolls: 1},
		"negative rolls": {ID: "x", MinRolls: -1, MaxRolls: 1},
		"min above max":  {ID: "x", MinRolls: 3, MaxRolls: 2},
		"empty item":     {ID: "x", MaxRolls: 1, Entries: []loot.Entry{{Weight: 1}}},
		"negative wt":    {ID: "x", MaxRolls: 1, Entries: []loot.Entry{{Item: "a", Weight: -1}}},
		"bad dice":       {ID: "x", MaxRolls: 1, Entries: []loot.Entry{{Item: "a", Weight: 1, Quantity: "3dd"}}},
		"bad filter":     {ID: "x", MaxRolls: 1, Entries: []loot.Entry{{Item: "a", Weight: 1, Filter: tag.Query{Op: "maybe"}}}},
	}
	for name, tb := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, tb.Validate())
		})
	}
	empty := loot.Table{ID: "empty"}
	assert.NoError(t, empty.Validate())
}

func TestTable_CheckItems_UnknownItem(t *testing.T) {
	tb := loot.Table{ID: "x", MaxRolls: 1, Entries: []loot.Entry{{Item: "ghost", Weight: 1}}}
	err := tb.CheckItems(catalog(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestEntry_QuantityRange(t *testing.T) {
	lo, hi := loot.Entry{MinQuantity: 0, MaxQuantity: 0}.QuantityRange()
	assert.Equal(t, 1, lo)
	assert.Equal(t, 0, hi)
	lo, hi = loot.Entry{MinQuantity: 4, MaxQuantity: 2}.QuantityRange()
	assert.Equal(t, 4, lo)
	assert.Equal(t, 4, hi)
}

func TestRoll_WeightedDistribution(t *testing.T) {
	tb := &loot.Table{ID: "dist", MinRolls: 10000, MaxRolls: 10000, Entries: []loot.Entry{
		{Item: "sword", Weight: 1},
		{Item: "ore", Weight: 3},
	}}
	g := loot.NewGenerator(tb, catalog(t), nil)
	res := g.Roll(nil, 1234)
	require.Equal(t, 10000, res.Rolls)
	require.Len(t, res.Drops, 10000)

	second := 0
	for _, d := range res.Drops {
		if d.Definition.ID == "ore" {
			second++
		}
	}
	assert.InDelta(t, 0.75, float64(second)/10000, 0.02)
}

func TestRoll_SeedIsDeterministic(t *testing.T) {
	tables, err := loot.LoadTables("testdata")
	require.NoError(t, err)
	g := loot.NewGenerator(tables[0], catalog(t), zaptest.NewLogger(t))
	ctx := tag.NewSet(inventory.KindStorage.Tag())
	assert.Equal(t, g.Roll(ctx, 99), g.Roll(ctx, 99))
}

func TestRoll_NoEntriesOrRolls(t *testing.T) {
	g := loot.NewGenerator(&loot.Table{ID: "empty", MaxRolls: 5}, catalog(t), nil)
	assert.Empty(t, g.Roll(nil, 1).Drops)

	g = loot.NewGenerator(&loot.Table{ID: "zero", Entries: []loot.Entry{{Item: "ore", Weight: 1}}}, catalog(t), nil)
	assert.Empty(t, g.Roll(nil, 1).Drops)
}

func TestRoll_SkipsIneligibleEntries(t *testing.T) {
	tb := &loot.Table{ID: "skip", MinRolls: 50, MaxRolls: 50, Entries: []loot.Entry{
		{Item: "ghost", Weight: 10},
		{Item: "sword", Weight: 0},
		{Item: "potion", Weight: 5, Filter: tag.MatchAny("Inventory.Container.Hotbar")},
		{Item: "ore", Weight: 1},
	}}
	g := loot.NewGenerator(tb, catalog(t), nil)
	res := g.Roll(tag.NewSet(inventory.KindStorage.Tag()), 8)
	require.Len(t, res.Drops, 50)
	for _, d := range res.Drops {
		assert.Equal(t, "ore", d.Definition.ID)
	}

	only := &loot.Table{ID: "none", MinRolls: 3, MaxRolls: 3, Entries: []loot.Entry{{Item: "ghost", Weight: 1}}}
	res = loot.NewGenerator(only, catalog(t), nil).Roll(nil, 8)
	assert.Equal(t, 3, res.Rolls)
	assert.Empty(t, res.Drops)
}

func TestRoll_QuantityBounds_Property(t *testing.T) {
	reg := catalog(t)
	rapid.Check(t, func(rt *rapid.T) {
		minQ := rapid.IntRange(0, 20).Draw(rt, "min")
		maxQ := rapid.IntRange(0, 20).Draw(rt, "max")
		minR := rapid.IntRange(0, 5).Draw(rt, "minRolls")
		maxR := minR + rapid.IntRange(0, 5).Draw(rt, "extraRolls")
		tb := &loot.Table{ID: "p", MinRolls: minR, MaxRolls: maxR, Entries: []loot.Entry{
			{Item: "ore", MinQuantity: minQ, MaxQuantity: maxQ, Weight: 1},
		}}
		res := loot.NewGenerator(tb, reg, nil).Roll(nil, rapid.Uint64Min(1).Draw(rt, "seed"))
		if maxR > 0 {
			assert.GreaterOrEqual(rt, res.Rolls, minR)
			assert.LessOrEqual(rt, res.Rolls, maxR)
		}
		lo, hi := max(1, minQ), max(minQ, maxQ)
		for _, d := range res.Drops {
			assert.GreaterOrEqual(rt, d.Quantity, lo)
			assert.LessOrEqual(rt, d.Quantity, max(lo, hi))
		}
	})
}

func TestRoll_DiceQuantity(t *testing.T) {
	tables, err := loot.LoadTables("testdata")
	require.NoError(t, err)
	g := loot.NewGenerator(tables[1], catalog(t), nil)
	for seed := uint64(1); seed < 50; seed++ {
		res := g.Roll(nil, seed)
		require.Len(t, res.Drops, 1)
		assert.GreaterOrEqual(t, res.Drops[0].Quantity, 3)
		assert.LessOrEqual(t, res.Drops[0].Quantity, 9)
	}
}

func TestGenerate_FillsContainer(t *testing.T) {
	tb := &loot.Table{ID: "fill", MinRolls: 3, MaxRolls: 3, Entries: []loot.Entry{
		{Item: "potion", MinQuantity: 2, MaxQuantity: 2, Weight: 1},
	}}
	c := inventory.MustNewContainer(inventory.Options{MaxSlots: 8, Kind: inventory.KindStorage})
	res, err := loot.NewGenerator(tb, catalog(t), zaptest.NewLogger(t)).Generate(c, 5)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Placed())
	assert.Equal(t, 6, c.Quantity("potion"))
	assert.Equal(t, 1, c.Len())
}

func TestGenerate_PartialAcceptanceIsNotCompensated(t *testing.T) {
	tb := &loot.Table{ID: "swords", MinRolls: 5, MaxRolls: 5, Entries: []loot.Entry{{Item: "sword", Weight: 1}}}
	c := inventory.MustNewContainer(inventory.Options{MaxSlots: 2})
	res, err := loot.NewGenerator(tb, catalog(t), nil).Generate(c, 5)
	require.NoError(t, err)
	assert.Len(t, res.Drops, 5)
	assert.Equal(t, 2, res.Placed())
	assert.Equal(t, 2, c.Len())
}

func TestGenerate_RequiresAuthority(t *testing.T) {
	tb := &loot.Table{ID: "fill", MinRolls: 1, MaxRolls: 1, Entries: []loot.Entry{{Item: "ore", Weight: 1}}}
	c := inventory.MustNewContainer(inventory.Options{MaxSlots: 2, Owner: remote{}})
	_, err := loot.NewGenerator(tb, catalog(t), nil).Generate(c, 1)
	assert.ErrorIs(t, err, inventory.ErrNoAuthority)
	assert.Equal(t, 0, c.Len())
}

func TestGenerate_SameSeedSameContents(t *testing.T) {
	tables, err := loot.LoadTables("testdata")
	require.NoError(t, err)
	g := loot.NewGenerator(tables[0], catalog(t), nil)

	quantities := func() map[string]int {
		c := inventory.MustNewContainer(inventory.Options{MaxSlots: 8, Kind: inventory.KindStorage})
		_, err := g.Generate(c, 77)
		require.NoError(t, err)
		return map[string]int{"potion": c.Quantity("potion"), "sword": c.Quantity("sword")}
	}
	assert.Equal(t, quantities(), quantities())
}
