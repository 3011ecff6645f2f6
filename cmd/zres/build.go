package main

import (
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [SOURCE] [TARGET]",
	Short: "Build the target tree once",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runBuild,
}

func init() {
	addIntrospectionFlags(buildCmd)
	rootCmd.AddCommand(buildCmd)
}
