package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/stockpile/internal/game/inventory"
	"github.com/cory-johannsen/stockpile/internal/observability"
	"github.com/cory-johannsen/stockpile/internal/transport/redisfeed"
)

func newWatchCmd() *cobra.Command {
	var container string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a container through the Redis feed and print its contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.Redis.Enabled {
				return fmt.Errorf("watch requires redis.enabled")
			}
			logger, err := observability.NewLogger(cfg.Logging)
			if err != nil {
				return err
			}
			client, err := redisfeed.NewClient(cfg.Redis.Addr, cfg.Redis.PoolSize)
			if err != nil {
				return err
			}
			defer client.Close()
			feed := redisfeed.NewFeed(client, redisfeed.Options{Prefix: cfg.Redis.Prefix}, logger)

			out := cmd.OutOrStdout()
			mirror := inventory.NewMirror(container)
			sub := mirror.Subscribe(inventory.ObserverFuncs{
				OnRefreshed: func(entries []inventory.Entry) {
					fmt.Fprintf(out, "%s @%d (%d entries)\n", container, mirror.Version(), len(entries))
					for _, e := range entries {
						fmt.Fprintf(out, "  %s\n", e)
					}
				},
			})
			defer sub.Unsubscribe()
			return feed.Follow(cmd.Context(), mirror)
		},
	}
	cmd.Flags().StringVar(&container, "container", "", "container id")
	_ = cmd.MarkFlagRequired("container")
	return cmd
}
