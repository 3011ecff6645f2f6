package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/zres"
	"github.com/aretw0/zres/pkg/adapters/redis"
	"github.com/aretw0/zres/pkg/config"
	"github.com/aretw0/zres/pkg/domain"
	"github.com/aretw0/zres/pkg/observability"
)

// newPipeline wires a pipeline from cfg. The returned close function
// releases the Redis connection, if any, and must always be called.
func newPipeline(ctx context.Context, cfg config.Config, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*zres.Pipeline, func(), error) {
	opts := []zres.Option{
		zres.WithLogger(logger),
		zres.WithLifecycleHooks(observability.LogHooks(logger)),
		zres.WithToolsDir(cfg.Tools),
		zres.WithToolCache(cfg.ToolCache),
		zres.WithGoCommand(cfg.GoCommand),
		zres.WithPassLimit(cfg.RecursionLimit),
		zres.WithWorkers(cfg.Workers),
		zres.WithPack(cfg.Pack),
		zres.WithMetadata(cfg.Metadata),
	}
	for _, h := range hooks {
		opts = append(opts, zres.WithLifecycleHooks(h))
	}

	closeFn := func() {}
	if cfg.Lock.Redis != "" {
		locker, err := redis.Dial(ctx, cfg.Lock.Redis)
		if err != nil {
			return nil, closeFn, err
		}
		logger.Debug("using redis run lock", "addr", cfg.Lock.Redis)
		closeFn = func() {
			if err := locker.Close(); err != nil {
				logger.Warn("closing redis connection", "err", err)
			}
		}
		opts = append(opts, zres.WithLocker(locker, cfg.Lock.TTL))
	}

	p, err := zres.New(cfg.Source, cfg.Target, opts...)
	if err != nil {
		closeFn()
		return nil, func() {}, fmt.Errorf("setting up pipeline: %w", err)
	}
	return p, closeFn, nil
}
