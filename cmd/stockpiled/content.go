package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/stockpile/internal/config"
	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/game/item"
	"github.com/cory-johannsen/stockpile/internal/game/loot"
	"github.com/cory-johannsen/stockpile/internal/game/world"
)

// content is everything loaded from the content directories.
type content struct {
	items   *item.Registry
	tables  loot.Index
	layouts []*world.Layout
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(path)
}

// loadContent reads and cross-checks items, loot tables and layouts.
func loadContent(cfg config.ContentConfig) (*content, error) {
	items, err := item.LoadRegistry(cfg.ItemsDir)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	tables, err := loot.LoadTables(cfg.LootDir)
	if err != nil {
		return nil, fmt.Errorf("loading loot tables: %w", err)
	}
	for _, t := range tables {
		if err := t.CheckItems(items); err != nil {
			return nil, fmt.Errorf("loading loot tables: %w", err)
		}
	}
	index, err := loot.NewIndex(tables)
	if err != nil {
		return nil, fmt.Errorf("loading loot tables: %w", err)
	}
	layouts, err := world.LoadLayoutsFromDir(cfg.WorldDir)
	if err != nil {
		return nil, fmt.Errorf("loading world layouts: %w", err)
	}
	return &content{items: items, tables: index, layouts: layouts}, nil
}

// buildWorld instantiates every container the layouts declare.
func buildWorld(cfg config.Config, c *content, logger *zap.Logger) (*world.Manager, error) {
	defaults := make(map[inventory.Kind]world.ContainerDefaults, len(cfg.Containers))
	for kind, cc := range cfg.Containers {
		defaults[inventory.Kind(kind)] = world.ContainerDefaults{MaxSlots: cc.MaxSlots, Filter: cc.Filter}
	}
	return world.NewManager(c.layouts, world.ManagerOptions{
		Catalog:  c.items,
		Tables:   c.tables,
		Defaults: defaults,
		Logger:   logger,
	})
}
