package config

import (
	"errors"
)

// Sentinel error kinds for this package, matched by callers with errors.Is.
var (
	// ErrInvalidConfig reports a configuration value that fails validation.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig reports a failure reading or parsing configuration
	// sources.
	ErrLoadConfig = errors.New("load config failed")
)
