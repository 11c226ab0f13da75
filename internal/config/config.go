// Package config provides Viper-based configuration loading for the
// stockpile server.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ContentConfig locates the YAML content directories.
type ContentConfig struct {
	ItemsDir string `mapstructure:"items_dir"`
	LootDir  string `mapstructure:"loot_dir"`
	WorldDir string `mapstructure:"world_dir"`
}

// SimulationConfig tunes the authoritative command loop.
type SimulationConfig struct {
	// TickInterval is the period between replication flushes.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// CommandBuffer is the capacity of the command queue.
	CommandBuffer int `mapstructure:"command_buffer"`
}

// ContainerConfig holds per-kind container defaults applied when a world
// layout leaves them unset.
type ContainerConfig struct {
	// MaxSlots is the slot limit; 0 means unlimited.
	MaxSlots int       `mapstructure:"max_slots"`
	Filter   tag.Query `mapstructure:"filter"`
}

// WebsocketConfig holds observer feed listener settings.
type WebsocketConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadBuffer   int           `mapstructure:"read_buffer"`
	WriteBuffer  int           `mapstructure:"write_buffer"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// SendBuffer is the per-observer outbound queue length.
	SendBuffer int `mapstructure:"send_buffer"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (w WebsocketConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// RedisConfig holds the optional Redis replication feed settings.
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	PoolSize    int           `mapstructure:"pool_size"`
	Prefix      string        `mapstructure:"prefix"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig              `mapstructure:"logging"`
	Content    ContentConfig              `mapstructure:"content"`
	Simulation SimulationConfig           `mapstructure:"simulation"`
	Containers map[string]ContainerConfig `mapstructure:"containers"`
	Websocket  WebsocketConfig            `mapstructure:"websocket"`
	Redis      RedisConfig                `mapstructure:"redis"`
}

// validKinds mirrors the container kinds the inventory package defines.
var validKinds = map[string]bool{"generic": true, "player": true, "hotbar": true, "storage": true}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContainers(c.Containers); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWebsocket(c.Websocket); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRedis(c.Redis); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.ItemsDir == "" {
		errs = append(errs, "content.items_dir must not be empty")
	}
	if c.LootDir == "" {
		errs = append(errs, "content.loot_dir must not be empty")
	}
	if c.WorldDir == "" {
		errs = append(errs, "content.world_dir must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.tick_interval must be > 0, got %s", s.TickInterval))
	}
	if s.CommandBuffer < 0 {
		errs = append(errs, fmt.Sprintf("simulation.command_buffer must be >= 0, got %d", s.CommandBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContainers(m map[string]ContainerConfig) error {
	kinds := make([]string, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	var errs []string
	for _, k := range kinds {
		c := m[k]
		if !validKinds[k] {
			errs = append(errs, fmt.Sprintf("containers.%s: unknown container kind", k))
			continue
		}
		if c.MaxSlots < 0 {
			errs = append(errs, fmt.Sprintf("containers.%s.max_slots must be >= 0, got %d", k, c.MaxSlots))
		}
		if err := c.Filter.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("containers.%s.filter: %v", k, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWebsocket(w WebsocketConfig) error {
	var errs []string
	if w.Port < 1 || w.Port > 65535 {
		errs = append(errs, fmt.Sprintf("websocket.port must be 1-65535, got %d", w.Port))
	}
	if w.ReadBuffer < 0 || w.WriteBuffer < 0 {
		errs = append(errs, "websocket buffers must not be negative")
	}
	if w.WriteTimeout < 0 {
		errs = append(errs, "websocket.write_timeout must not be negative")
	}
	if w.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("websocket.send_buffer must be >= 1, got %d", w.SendBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRedis(r RedisConfig) error {
	if !r.Enabled {
		return nil
	}
	var errs []string
	if r.Addr == "" {
		errs = append(errs, "redis.addr must not be empty when redis is enabled")
	}
	if r.PoolSize < 1 {
		errs = append(errs, fmt.Sprintf("redis.pool_size must be >= 1, got %d", r.PoolSize))
	}
	if r.SnapshotTTL < 0 {
		errs = append(errs, "redis.snapshot_ttl must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with STOCKPILE_ prefix
	v.SetEnvPrefix("STOCKPILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration produced by the defaults alone.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("content.items_dir", "content/items")
	v.SetDefault("content.loot_dir", "content/loot")
	v.SetDefault("content.world_dir", "content/world")

	v.SetDefault("simulation.tick_interval", "50ms")
	v.SetDefault("simulation.command_buffer", 256)

	v.SetDefault("websocket.host", "0.0.0.0")
	v.SetDefault("websocket.port", 8080)
	v.SetDefault("websocket.read_buffer", 1024)
	v.SetDefault("websocket.write_buffer", 1024)
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.send_buffer", 64)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.prefix", "stockpile")
	v.SetDefault("redis.snapshot_ttl", "10m")
}
