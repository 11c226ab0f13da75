package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check configuration and content without serving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := loadContent(cfg.Content)
			if err != nil {
				return err
			}
			mgr, err := buildWorld(cfg, c, zap.NewNop())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d items, %d loot tables, %d actors, %d containers\n",
				c.items.Len(), len(c.tables), mgr.ActorCount(), len(mgr.Containers()))
			return nil
		},
	}
}
