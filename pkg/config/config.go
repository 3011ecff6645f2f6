// Package config loads the optional zres.yaml project file.
//
//	source: res
//	target: target/res
//	tools: tools
//	recursion_limit: 32
//	lock:
//	  redis: localhost:6379
//	  ttl: 30m
//	watch:
//	  debounce: 300ms
//	metadata:
//	  app: My App
//	  version: 1.2.0
//
// Relative paths are resolved against the directory of the file. Unknown keys
// are rejected.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/zres/pkg/domain"
)

// FileName is the default config file name, looked up in the workspace root.
const FileName = "zres.yaml"

// Config is the project configuration. CLI flags override it.
type Config struct {
	Source         string            `mapstructure:"source"`
	Target         string            `mapstructure:"target"`
	Tools          string            `mapstructure:"tools"`
	ToolCache      string            `mapstructure:"tool_cache"`
	Pack           bool              `mapstructure:"pack"`
	RecursionLimit int               `mapstructure:"recursion_limit"`
	Workers        int               `mapstructure:"workers"`
	GoCommand      string            `mapstructure:"go_command"`
	MetricsFile    string            `mapstructure:"metrics_file"`
	Lock           LockConfig        `mapstructure:"lock"`
	Watch          WatchConfig       `mapstructure:"watch"`
	Metadata       map[string]string `mapstructure:"metadata"`
}

// LockConfig selects the run lock.
type LockConfig struct {
	// Redis is the address of a Redis server. Empty selects the in-process lock.
	Redis string        `mapstructure:"redis"`
	TTL   time.Duration `mapstructure:"ttl"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Listen   string        `mapstructure:"listen"`
}

// Default returns the configuration used when there is no file.
func Default() Config {
	return Config{
		Source:         "res",
		Target:         filepath.Join("target", "res"),
		Tools:          "tools",
		RecursionLimit: domain.DefaultPassLimit,
		GoCommand:      "go",
		Lock:           LockConfig{TTL: time.Hour},
		Watch:          WatchConfig{Debounce: 300 * time.Millisecond},
	}
}

// Load reads the config file at path over the defaults. A missing file is
// not an error unless mustExist is set; the defaults are then resolved
// against the directory path would live in.
func Load(path string, mustExist bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !mustExist {
			cfg.resolve(filepath.Dir(path))
			return cfg, nil
		}
		return cfg, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", domain.ErrConfig, path, err)
	}
	cfg.resolve(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode parses YAML data into cfg, keeping the values the data leaves out.
func Decode(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// Validate checks the value ranges.
func (c Config) Validate() error {
	if c.RecursionLimit < 1 {
		return fmt.Errorf("%w: recursion_limit must be at least 1", domain.ErrConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", domain.ErrConfig)
	}
	for k := range c.Metadata {
		if _, ok := domain.MetadataKeys[k]; !ok {
			return fmt.Errorf("%w: unknown metadata key %q", domain.ErrConfig, k)
		}
	}
	return nil
}

func (c *Config) resolve(dir string) {
	for _, p := range []*string{&c.Source, &c.Target, &c.Tools, &c.ToolCache, &c.MetricsFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
