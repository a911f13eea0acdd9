package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is matched by every *ValidationError.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError reports a setting with an unacceptable value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidConfig) match any validation error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
	LevelOff: true,
}

// Validate checks settings that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if !validLevels[c.Logging.Level] {
		return &ValidationError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Field: "logging.maxSizeMB", Message: "must not be negative"}
	}
	if c.Logging.MaxBackups < 0 {
		return &ValidationError{Field: "logging.maxBackups", Message: "must not be negative"}
	}
	if c.Overlay.ImageWidth <= 0 || c.Overlay.ImageHeight <= 0 {
		return &ValidationError{Field: "overlay", Message: "image dimensions must be positive"}
	}
	return nil
}
