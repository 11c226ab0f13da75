package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/stockpile/internal/game/loot"
	"github.com/cory-johannsen/stockpile/internal/game/tag"
)

func newRollCmd() *cobra.Command {
	var (
		table string
		seed  uint64
		tags  []string
	)
	cmd := &cobra.Command{
		Use:   "roll",
		Short: "Roll a loot table and print the drops",
		Long: `Roll a loot table against a container context without touching any
container. A zero seed rolls from the crypto source; any other seed is
reproducible.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := loadContent(cfg.Content)
			if err != nil {
				return err
			}
			t, ok := c.tables[table]
			if !ok {
				return fmt.Errorf("unknown loot table %q", table)
			}
			ctxTags := make([]tag.Tag, len(tags))
			for i, s := range tags {
				ctxTags[i] = tag.Tag(s)
				if err := ctxTags[i].Validate(); err != nil {
					return err
				}
			}

			res := loot.NewGenerator(t, c.items, zap.NewNop()).Roll(tag.NewSet(ctxTags...), seed)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "table %s: %d rolls\n", t.ID, res.Rolls)
			for _, d := range res.Drops {
				fmt.Fprintf(out, "  %-24s x%d\n", d.Definition.DisplayName(), d.Quantity)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "loot table id")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed; 0 selects the crypto source")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "container context tags matched by entry filters")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}
