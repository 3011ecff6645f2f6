package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aretw0/zres/pkg/config"
	"github.com/aretw0/zres/pkg/workspace"
)

// Options holds what every command gets from the command line.
type Options struct {
	// Source and Target are the positional arguments. Empty means the
	// config value.
	Source string
	Target string
	// ConfigPath is --config. Empty looks for zres.yaml in the workspace.
	ConfigPath string
	Overrides  Overrides
	Debug      bool

	Stdout io.Writer
	Stderr io.Writer
}

// Overrides are the flags that were set explicitly. They win over the
// config file.
type Overrides struct {
	Pack           *bool
	Tools          *string
	ToolCache      *string
	RecursionLimit *int
	Workers        *int
	MetricsFile    *string
	LockRedis      *string
	Listen         *string
}

// Apply writes the set flags into cfg. Relative paths are resolved against
// the working directory, like positional arguments.
func (o Overrides) Apply(cfg *config.Config) error {
	if o.Pack != nil {
		cfg.Pack = *o.Pack
	}
	if o.RecursionLimit != nil {
		cfg.RecursionLimit = *o.RecursionLimit
	}
	if o.Workers != nil {
		cfg.Workers = *o.Workers
	}
	if o.LockRedis != nil {
		cfg.Lock.Redis = *o.LockRedis
	}
	if o.Listen != nil {
		cfg.Watch.Listen = *o.Listen
	}
	paths := []struct {
		flag *string
		dst  *string
	}{
		{o.Tools, &cfg.Tools},
		{o.ToolCache, &cfg.ToolCache},
		{o.MetricsFile, &cfg.MetricsFile},
	}
	for _, p := range paths {
		if p.flag == nil {
			continue
		}
		abs, err := absPath(*p.flag)
		if err != nil {
			return err
		}
		*p.dst = abs
	}
	return nil
}

// LoadConfig resolves the effective configuration: defaults, then the config
// file, then explicit flags, then the positional arguments.
func LoadConfig(opts Options) (config.Config, error) {
	path, mustExist, err := configPath(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path, mustExist)
	if err != nil {
		return cfg, err
	}
	if err := opts.Overrides.Apply(&cfg); err != nil {
		return cfg, err
	}
	if opts.Source != "" {
		if cfg.Source, err = absPath(opts.Source); err != nil {
			return cfg, err
		}
	}
	if opts.Target != "" {
		if cfg.Target, err = absPath(opts.Target); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

// configPath returns the config file to read and whether it must exist.
func configPath(explicit string) (string, bool, error) {
	if explicit != "" {
		abs, err := absPath(explicit)
		return abs, true, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", false, err
	}
	dir := wd
	ws, err := workspace.Detect(wd)
	switch {
	case err == nil:
		dir = ws.Root
	case !errors.Is(err, workspace.ErrNotFound):
		return "", false, fmt.Errorf("detect workspace: %w", err)
	}
	return filepath.Join(dir, config.FileName), false, nil
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return filepath.Abs(p)
}

func (o Options) stdout() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}

func (o Options) stderr() io.Writer {
	if o.Stderr != nil {
		return o.Stderr
	}
	return os.Stderr
}
