package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig points a config at the repository content directory.
func writeConfig(t *testing.T) string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("..", "..", "content"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
logging:
  level: error
  format: json
content:
  items_dir: %s/items
  loot_dir: %s/loot
  world_dir: %s/world
containers:
  hotbar:
    max_slots: 8
`, root, root, root)), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate_RepositoryContent(t *testing.T) {
	out, err := execute(t, "validate", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "ok:")
	assert.Contains(t, out, "8 items")
	assert.Contains(t, out, "4 loot tables")
}

func TestValidate_MissingConfig(t *testing.T) {
	_, err := execute(t, "validate", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestRoll_SeededIsReproducible(t *testing.T) {
	cfg := writeConfig(t)
	first, err := execute(t, "roll", "--config", cfg, "--table", "supply_crate", "--seed", "99")
	require.NoError(t, err)
	second, err := execute(t, "roll", "--config", cfg, "--table", "supply_crate", "--seed", "99")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "table supply_crate: "))
}

func TestRoll_FilterUsesContextTags(t *testing.T) {
	cfg := writeConfig(t)
	// Without the storage context only the axe is eligible.
	out, err := execute(t, "roll", "--config", cfg, "--table", "armory_rack", "--seed", "3")
	require.NoError(t, err)
	assert.NotContains(t, out, "Spear")

	out, err = execute(t, "roll", "--config", cfg, "--table", "armory_rack", "--seed", "3",
		"--tags", "Inventory.Container.Storage")
	require.NoError(t, err)
	assert.Contains(t, out, "rolls")
}

func TestRoll_Rejects(t *testing.T) {
	cfg := writeConfig(t)
	_, err := execute(t, "roll", "--config", cfg, "--table", "nope")
	assert.ErrorContains(t, err, "unknown loot table")

	_, err = execute(t, "roll", "--config", cfg)
	assert.Error(t, err, "table flag is required")

	_, err = execute(t, "roll", "--config", cfg, "--table", "ore_vein", "--tags", "bad..tag")
	assert.Error(t, err)
}

func TestWatch_RequiresRedis(t *testing.T) {
	_, err := execute(t, "watch", "--config", writeConfig(t), "--container", "camp-crate")
	assert.ErrorContains(t, err, "redis.enabled")
}
