// Package main is the stockpiled entry point: the authoritative container
// server and its content tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultConfig = "configs/dev.yaml"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stockpiled",
		Short: "Authoritative container server",
		Long: `stockpiled owns every container of the world, executes inventory
commands on a single simulation loop and streams replication frames to
websocket observers and, optionally, Redis.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", defaultConfig, "path to configuration file")
	root.AddCommand(newServeCmd(), newRollCmd(), newValidateCmd(), newWatchCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
