package item_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/stockpile/internal/game/item"
	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

func TestLoadDefinitions_Testdata(t *testing.T) {
	defs, err := item.LoadDefinitions("testdata")
	require.NoError(t, err)
	require.Len(t, defs, 3)

	reg := item.NewRegistry()
	require.NoError(t, reg.RegisterAll(defs))

	potion, ok := reg.Definition("potion")
	require.True(t, ok)
	assert.Equal(t, 10, potion.MaxStack())
	assert.Equal(t, "Potion of Healing", potion.DisplayName())
	assert.True(t, potion.CombinedTags().HasExact(item.TraitStackable))
	assert.True(t, potion.CombinedTags().Has(item.TypeTag))

	sword, ok := reg.Definition("sword")
	require.True(t, ok)
	assert.Equal(t, 1, sword.MaxStack())
	_, stackable := sword.Stackable()
	assert.False(t, stackable)
	mesh, ok := sword.WorldMesh()
	require.True(t, ok)
	assert.Equal(t, "meshes/sword", mesh.Mesh())
	assert.Equal(t, [3]float64{1, 1, 1}, mesh.RelativeScale())
	assert.Equal(t, "Short Sword", sword.DisplayName())

	wood, ok := reg.Definition("wood")
	require.True(t, ok)
	assert.Equal(t, 50, wood.MaxStack())
	assert.True(t, wood.CombinedTags().HasExact("Inventory.Item.Trait.Flammable"))
}

func TestLoadDefinitions_MissingDir(t *testing.T) {
	_, err := item.LoadDefinitions(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestLoadDefinitions_InvalidFileFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: broken\nfragments:\n  - kind: stackable\n    max_stack: 0\n"), 0o644))
	_, err := item.LoadDefinitions(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestParseDefinitions_UnknownFragmentKind(t *testing.T) {
	_, err := item.ParseDefinitions([]byte("id: x\nname: X\nfragments:\n  - kind: glowing\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "glowing")
}

func TestDefinition_Validate(t *testing.T) {
	cases := map[string]*item.Definition{
		"empty id":       {Name: "n"},
		"empty name":     {ID: "x"},
		"bad tag":        {ID: "x", Name: "n", Tags: []tag.Tag{"A..B"}},
		"zero max stack": {ID: "x", Name: "n", Fragments: item.Fragments{&item.Stackable{}}},
		"duplicate kind": {ID: "x", Name: "n", Fragments: item.Fragments{&item.Stackable{MaxStack: 2}, &item.Stackable{MaxStack: 3}}},
		"nil fragment":   {ID: "x", Name: "n", Fragments: item.Fragments{nil}},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, d.Validate())
		})
	}
	assert.NoError(t, (&item.Definition{ID: "ok", Name: "Ok"}).Validate())
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	reg := item.NewRegistry()
	d := &item.Definition{ID: "a", Name: "A"}
	require.NoError(t, reg.Register(d))
	assert.Error(t, reg.Register(&item.Definition{ID: "a", Name: "Other"}))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_AllSorted(t *testing.T) {
	reg := item.NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, reg.Register(&item.Definition{ID: id, Name: id}))
	}
	var ids []string
	for _, d := range reg.All() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestFactory_StampsOwnerAndInstanceTags(t *testing.T) {
	defs, err := item.LoadDefinitions("testdata")
	require.NoError(t, err)
	var sword *item.Definition
	for _, d := range defs {
		if d.ID == "sword" {
			sword = d
		}
	}
	require.NotNil(t, sword)

	f := item.NewFactory("actor-1")
	a := f.New(sword)
	b := f.New(sword)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "actor-1", a.Owner)
	assert.Same(t, sword, a.Definition)
	assert.True(t, a.Tags.HasExact("Inventory.Item.State.Pristine"))

	c := a.Clone()
	c.Tags = append(c.Tags, "Extra.Tag")
	assert.False(t, a.Tags.HasExact("Extra.Tag"))
}

func TestFactory_NilDefinitionPanics(t *testing.T) {
	assert.Panics(t, func() { item.NewFactory("x").New(nil) })
}

func TestMaxStack_AtLeastOne_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(-5, 100).Draw(rt, "maxStack")
		d := &item.Definition{ID: "x", Name: "x", Fragments: item.Fragments{&item.Stackable{MaxStack: n}}}
		ms := d.MaxStack()
		assert.GreaterOrEqual(rt, ms, 1)
		if n >= 1 {
			assert.Equal(rt, n, ms)
		}
	})
}
