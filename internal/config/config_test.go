package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

func validConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Content: ContentConfig{
			ItemsDir: "content/items",
			LootDir:  "content/loot",
			WorldDir: "content/world",
		},
		Simulation: SimulationConfig{
			TickInterval:  50 * time.Millisecond,
			CommandBuffer: 256,
		},
		Containers: map[string]ContainerConfig{
			"hotbar": {MaxSlots: 6},
			"storage": {
				MaxSlots: 8,
				Filter:   tag.MatchNone("Inventory.Item.Type.Weapon"),
			},
		},
		Websocket: WebsocketConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadBuffer:   1024,
			WriteBuffer:  1024,
			WriteTimeout: 10 * time.Second,
			SendBuffer:   64,
		},
		Redis: RedisConfig{
			Enabled:     true,
			Addr:        "127.0.0.1:6379",
			PoolSize:    10,
			SnapshotTTL: 10 * time.Minute,
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 50*time.Millisecond, cfg.Simulation.TickInterval)
	assert.False(t, cfg.Redis.Enabled)
}

func TestWebsocketAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:8080", cfg.Websocket.Addr())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
logging:
  level: debug
  format: console
content:
  items_dir: /srv/items
simulation:
  tick_interval: 20ms
containers:
  storage:
    max_slots: 12
    filter:
      op: no_tags
      tags: [Inventory.Item.Type.Weapon]
  hotbar:
    max_slots: 4
websocket:
  port: 9001
  write_timeout: 2s
redis:
  enabled: true
  addr: redis:6379
  snapshot_ttl: 1m
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/srv/items", cfg.Content.ItemsDir)
	assert.Equal(t, "content/loot", cfg.Content.LootDir)
	assert.Equal(t, 20*time.Millisecond, cfg.Simulation.TickInterval)
	assert.Equal(t, 256, cfg.Simulation.CommandBuffer)
	assert.Equal(t, 12, cfg.Containers["storage"].MaxSlots)
	assert.Equal(t, tag.NoTags, cfg.Containers["storage"].Filter.Op)
	assert.Equal(t, []tag.Tag{"Inventory.Item.Type.Weapon"}, cfg.Containers["storage"].Filter.Tags)
	assert.Equal(t, 4, cfg.Containers["hotbar"].MaxSlots)
	assert.Equal(t, 9001, cfg.Websocket.Port)
	assert.Equal(t, 2*time.Second, cfg.Websocket.WriteTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Redis.SnapshotTTL)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte("websocket:\n  port: 9001\n"), 0644))
	t.Setenv("STOCKPILE_WEBSOCKET_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Websocket.Port)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		assert.NoError(t, cfg.Validate(), "format %q should be valid", format)
	}
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateContentDirs(t *testing.T) {
	cfg := validConfig()
	cfg.Content.LootDir = ""
	assert.ErrorContains(t, cfg.Validate(), "content.loot_dir")
}

func TestValidateTickInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Simulation.TickInterval = 0
	assert.ErrorContains(t, cfg.Validate(), "simulation.tick_interval")
}

func TestValidateContainerKind(t *testing.T) {
	cfg := validConfig()
	cfg.Containers["vault"] = ContainerConfig{MaxSlots: 2}
	assert.ErrorContains(t, cfg.Validate(), "containers.vault")
}

func TestValidateContainerFilter(t *testing.T) {
	cfg := validConfig()
	cfg.Containers["player"] = ContainerConfig{Filter: tag.Query{Op: "xor"}}
	assert.ErrorContains(t, cfg.Validate(), "containers.player.filter")
}

func TestValidateRedisOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Addr = ""
	assert.Error(t, cfg.Validate())

	cfg.Redis.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	cfg.Websocket.Port = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
	assert.Contains(t, err.Error(), "websocket.port")
}

// Property-based tests

func TestPropertyValidPortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.IntRange(1, 65535).Draw(t, "port")
		cfg := validConfig()
		cfg.Websocket.Port = port
		if err := cfg.Validate(); err != nil {
			t.Fatalf("valid port %d rejected: %v", port, err)
		}
	})
}

func TestPropertyInvalidPortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.OneOf(
			rapid.IntRange(-1000, 0),
			rapid.IntRange(65536, 100000),
		).Draw(t, "port")
		cfg := validConfig()
		cfg.Websocket.Port = port
		if err := cfg.Validate(); err == nil {
			t.Fatalf("invalid port %d accepted", port)
		}
	})
}

func TestPropertyNegativeMaxSlotsRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(-100, 100).Draw(t, "max_slots")
		cfg := validConfig()
		cfg.Containers = map[string]ContainerConfig{"generic": {MaxSlots: n}}
		err := cfg.Validate()
		if (n < 0) != (err != nil) {
			t.Fatalf("max_slots=%d: err=%v", n, err)
		}
	})
}
