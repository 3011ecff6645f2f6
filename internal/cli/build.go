package cli

import (
	"context"

	"github.com/aretw0/zres/internal/logging"
	"github.com/aretw0/zres/internal/presentation/tui"
	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/observability"
)

// ReportedError is a failure the command already printed. main exits 1
// without printing it again.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }

func (e *ReportedError) Unwrap() error { return e.Err }

// BuildOptions adds the build-only flags.
type BuildOptions struct {
	Options
	// List prints the available tools instead of building.
	List bool
	// Tool prints the help of one tool instead of building.
	Tool string
}

// RunBuild runs a single build and prints the report to stderr.
func RunBuild(ctx context.Context, opts BuildOptions) error {
	if opts.List || opts.Tool != "" {
		return RunTools(ctx, opts.Options, opts.Tool)
	}

	cfg, err := LoadConfig(opts.Options)
	if err != nil {
		return err
	}
	logger := logging.ForDebug(opts.Debug)

	var hooks []domain.LifecycleHooks
	var metrics *observability.Metrics
	if cfg.MetricsFile != "" {
		metrics = observability.NewMetrics()
		hooks = append(hooks, metrics.Hooks())
	}

	p, closeFn, err := newPipeline(ctx, cfg, logger, hooks...)
	defer closeFn()
	if err != nil {
		return err
	}

	report, buildErr := p.Build(ctx)
	tui.NewPrinter(opts.stderr()).Report(report)

	if metrics != nil {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("writing metrics file", "path", cfg.MetricsFile, "err", err)
		}
	}
	if buildErr != nil {
		return &ReportedError{Err: buildErr}
	}
	return nil
}
