package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/stockpile/internal/gameserver"
	"github.com/cory-johannsen/stockpile/internal/observability"
	"github.com/cory-johannsen/stockpile/internal/server"
	"github.com/cory-johannsen/stockpile/internal/transport/redisfeed"
	"github.com/cory-johannsen/stockpile/internal/transport/ws"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation loop and the observer feeds",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	start := time.Now()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	c, err := loadContent(cfg.Content)
	if err != nil {
		return err
	}
	mgr, err := buildWorld(cfg, c, observability.Component(logger, "world"))
	if err != nil {
		return err
	}
	logger.Info("content loaded",
		zap.Int("items", c.items.Len()),
		zap.Int("loot_tables", len(c.tables)),
		zap.Int("actors", mgr.ActorCount()),
		zap.Int("containers", len(mgr.Containers())),
		zap.Duration("elapsed", time.Since(start)),
	)

	loop := gameserver.NewLoop(gameserver.Config{
		TickInterval:  cfg.Simulation.TickInterval,
		CommandBuffer: cfg.Simulation.CommandBuffer,
	}, c.items, c.tables, observability.Component(logger, "loop"))
	for _, ctr := range mgr.Containers() {
		if err := loop.AddContainer(ctr); err != nil {
			return err
		}
	}

	hub := ws.NewHub(loop, ws.Config{
		ReadBufferSize:  cfg.Websocket.ReadBuffer,
		WriteBufferSize: cfg.Websocket.WriteBuffer,
		WriteTimeout:    cfg.Websocket.WriteTimeout,
		SendBuffer:      cfg.Websocket.SendBuffer,
	}, observability.Component(logger, "ws"))
	loop.AddSink(hub)

	if cfg.Redis.Enabled {
		client, err := redisfeed.NewClient(cfg.Redis.Addr, cfg.Redis.PoolSize)
		if err != nil {
			return err
		}
		defer client.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		err = client.Ping(ctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		loop.AddSink(redisfeed.NewFeed(client, redisfeed.Options{
			Prefix:      cfg.Redis.Prefix,
			SnapshotTTL: cfg.Redis.SnapshotTTL,
		}, observability.Component(logger, "redisfeed")))
		logger.Info("redis feed enabled", zap.String("addr", cfg.Redis.Addr))
	}

	lc := server.NewLifecycle(logger)
	if err := lc.Add("simulation", loop); err != nil {
		return err
	}
	if err := lc.Add("websocket", ws.NewServer(cfg.Websocket.Addr(), hub, observability.Component(logger, "http"))); err != nil {
		return err
	}
	return lc.Run(cmd.Context())
}
