package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/zres"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of zres",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "zres version %s\n", strings.TrimSpace(zres.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
