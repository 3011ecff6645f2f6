package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/zres/internal/cli"
	"github.com/aretw0/zres/pkg/domain"
)

var rootCmd = &cobra.Command{
	Use:   "zres [SOURCE] [TARGET]",
	Short: "zres builds resource trees with pluggable tools",
	Long: `zres copies a source resource tree into a target tree. Files ending in
".zr-<tool>" are requests handled by tools, which may generate more requests.
The build repeats until nothing new appears, then runs the deferred final pass.

SOURCE defaults to "res" and TARGET to "target/res", relative to the workspace.`,
	Args:          cobra.MaximumNArgs(2),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runBuild,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx := cli.NewSignalContext(context.Background())
	defer ctx.Cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var reported *cli.ReportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		ctx.Cancel()
		os.Exit(1)
	}
}

func init() {
	addPersistentFlags(rootCmd)
	addIntrospectionFlags(rootCmd)
}

func addPersistentFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.String("config", "", "Config file (default zres.yaml in the workspace root)")
	pf.Bool("debug", false, "Log engine events to stderr")
	pf.String("tools", "", "Directory with zres-<tool> packages (default tools in the workspace root)")
	pf.String("tool-cache", "", "Root of the per-request tool cache directories")
	pf.Int("recursion-limit", domain.DefaultPassLimit, "Maximum number of passes")
	pf.Int("workers", 0, "Tools run at once within a pass (default number of CPUs)")
	pf.Bool("pack", false, "Copy non-request source files into the target")
	pf.String("metrics-file", "", "Write Prometheus metrics to this textfile after each build")
	pf.String("lock-redis", "", "Redis address used to lock runs sharing a target or cache")
}

func addIntrospectionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("list", false, "List the available tools and exit")
	cmd.Flags().String("tool", "", "Print the help of a tool and exit")
}

// options collects the flags shared by every command. Only flags set on the
// command line override the config file.
func options(cmd *cobra.Command, args []string) cli.Options {
	fs := cmd.Flags()
	configPath, _ := fs.GetString("config")
	debug, _ := fs.GetBool("debug")
	opts := cli.Options{
		ConfigPath: configPath,
		Debug:      debug,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	}
	if len(args) > 0 {
		opts.Source = args[0]
	}
	if len(args) > 1 {
		opts.Target = args[1]
	}

	o := &opts.Overrides
	if fs.Changed("pack") {
		v, _ := fs.GetBool("pack")
		o.Pack = &v
	}
	for name, dst := range map[string]**string{
		"tools":        &o.Tools,
		"tool-cache":   &o.ToolCache,
		"metrics-file": &o.MetricsFile,
		"lock-redis":   &o.LockRedis,
		"listen":       &o.Listen,
	} {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			v, _ := fs.GetString(name)
			*dst = &v
		}
	}
	for name, dst := range map[string]**int{
		"recursion-limit": &o.RecursionLimit,
		"workers":         &o.Workers,
	} {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			*dst = &v
		}
	}
	return opts
}

func runBuild(cmd *cobra.Command, args []string) error {
	list, _ := cmd.Flags().GetBool("list")
	tool, _ := cmd.Flags().GetString("tool")
	return cli.RunBuild(cmd.Context(), cli.BuildOptions{
		Options: options(cmd, args),
		List:    list,
		Tool:    tool,
	})
}
