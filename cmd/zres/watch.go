package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/zres/internal/cli"
)

var watchCmd = &cobra.Command{
	Use:   "watch [SOURCE] [TARGET]",
	Short: "Rebuild whenever the source or tools tree changes",
	Long: `Builds once, then watches the source and tools trees and rebuilds after
every burst of changes. With --listen, serves /healthz, /status, /metrics and
POST /build on that address.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.RunWatch(cmd.Context(), cli.WatchOptions{Options: options(cmd, args)})
	},
}

func init() {
	watchCmd.Flags().String("listen", "", "Address of the status server, e.g. :8080")
	rootCmd.AddCommand(watchCmd)
}
