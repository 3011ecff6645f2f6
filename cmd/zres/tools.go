package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/zres/internal/cli"
)

var toolsCmd = &cobra.Command{
	Use:   "tools [NAME]",
	Short: "List the available tools, or show the help of one",
	Long: `Without NAME, lists every tool in search order: dedicated packages,
multi-tool entry points, builtins, then executables next to zres. A tool hidden
by an earlier tier with the same name is marked as shadowed.

With NAME, resolves the tool and prints its help.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return cli.RunTools(cmd.Context(), options(cmd, nil), name)
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
