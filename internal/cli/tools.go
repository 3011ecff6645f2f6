package cli

import (
	"context"

	"github.com/aretw0/zres/internal/logging"
	"github.com/aretw0/zres/internal/presentation/tui"
)

// RunTools lists the available tools, or prints the help of name.
func RunTools(ctx context.Context, opts Options, name string) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}
	logger := logging.ForDebug(opts.Debug)

	p, closeFn, err := newPipeline(ctx, cfg, logger)
	defer closeFn()
	if err != nil {
		return err
	}

	out := opts.stdout()
	if name == "" {
		tools, err := p.Tools()
		if err != nil {
			return err
		}
		tui.NewPrinter(out).Tools(tools)
		return nil
	}

	help, err := p.Help(ctx, name)
	if err != nil {
		return err
	}
	return tui.PrintHelp(out, name, help)
}
