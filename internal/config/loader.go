package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PICKER_CONFIG is set
//  3. env (prefix PICKER_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("PICKER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: PICKER_ADDR, PICKER_QUEUE_SIZE, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("PICKER_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "picker_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate fails fast on configuration the core would reject later.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Kernel < 1:
		return fmt.Errorf("%w: kernel must be positive, got %d", ErrInvalidConfig, c.Kernel)
	case c.Stride < 1:
		return fmt.Errorf("%w: stride must be positive, got %d", ErrInvalidConfig, c.Stride)
	case c.TopK < 0:
		return fmt.Errorf("%w: topk must not be negative, got %d", ErrInvalidConfig, c.TopK)
	case c.SampleInterval <= 0:
		return fmt.Errorf("%w: sample_interval must be positive, got %g", ErrInvalidConfig, c.SampleInterval)
	case len(c.Phases) == 0:
		return fmt.Errorf("%w: at least one phase label is required", ErrInvalidConfig)
	case c.Mode != "seismic" && c.Mode != "das":
		return fmt.Errorf("%w: mode must be seismic or das, got %q", ErrInvalidConfig, c.Mode)
	case c.MinPicks < 0:
		return fmt.Errorf("%w: min_picks must not be negative, got %d", ErrInvalidConfig, c.MinPicks)
	}
	return nil
}
