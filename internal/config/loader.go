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
//  2. file (YAML) if RALLYLENS_CONFIG is set
//  3. env (prefix RALLYLENS_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("RALLYLENS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: RALLYLENS_ADDR, RALLYLENS_QUEUE_SIZE, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("RALLYLENS_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "rallylens_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SampleIntervalFrames < 1:
		return fmt.Errorf("%w: sample_interval_frames must be >= 1", ErrInvalidConfig)
	case c.MinPoseConfidence < 0 || c.MinPoseConfidence > 1:
		return fmt.Errorf("%w: min_pose_confidence must be within [0,1]", ErrInvalidConfig)
	case c.ShotDetectionThreshold <= 0:
		return fmt.Errorf("%w: shot_detection_threshold must be positive", ErrInvalidConfig)
	case c.MinShotGapSeconds <= 0:
		return fmt.Errorf("%w: min_shot_gap_seconds must be positive", ErrInvalidConfig)
	case c.DominantHand != "right" && c.DominantHand != "left":
		return fmt.Errorf("%w: dominant_hand must be \"right\" or \"left\"", ErrInvalidConfig)
	case c.RallyTimeoutSeconds <= 0:
		return fmt.Errorf("%w: rally_timeout_seconds must be positive", ErrInvalidConfig)
	case c.HeatmapRows < 1 || c.HeatmapCols < 1:
		return fmt.Errorf("%w: heatmap dimensions must be >= 1", ErrInvalidConfig)
	}

	if sum := c.TechnicalWeight + c.MovementWeight + c.SuccessWeight; sum <= 0 {
		return fmt.Errorf("%w: scoring weights must sum to a positive value", ErrInvalidConfig)
	}
	return nil
}
