// Package config loads tiewarp settings from defaults, an optional TOML or
// YAML file, and TIEWARP_ environment variables, in increasing precedence.
package config

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/tidwall/gjson"

	"github.com/dshills/tiewarp/internal/config/loader"
)

// Config is the decoded tiewarp configuration.
type Config struct {
	Logging LoggingConfig     `json:"logging"`
	History HistoryConfig     `json:"history"`
	Overlay OverlayConfig     `json:"overlay"`
	Keymap  map[string]string `json:"keymap"`

	// Path is the file the configuration was loaded from, if any.
	Path string `json:"-"`
}

// LevelOff as logging.level disables logging.
const LevelOff = "off"

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups"`
}

// HistoryConfig configures the undo/redo engine.
type HistoryConfig struct {
	// StrictHooks fails history operations when the capture or restore hook
	// is missing instead of falling back to logging stubs.
	StrictHooks bool `json:"strictHooks"`
}

// OverlayConfig describes the overlay a new session starts with.
type OverlayConfig struct {
	Name        string `json:"name"`
	ImageWidth  int    `json:"imageWidth"`
	ImageHeight int    `json:"imageHeight"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Overlay: OverlayConfig{
			Name:        "untitled",
			ImageWidth:  1024,
			ImageHeight: 768,
		},
		Keymap: map[string]string{},
	}
}

// Load builds the configuration. An empty path or a missing file yields
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	env := loader.NewEnvLoader(loader.EnvPrefix).WithKinds(Kinds())
	return LoadWith(loader.DefaultFS(), env, path)
}

// Kinds returns the value type of every typed setting, keyed by dotted
// path. Settings not listed, such as keymap entries, are strings.
func Kinds() map[string]loader.Kind {
	kinds := map[string]loader.Kind{}
	walkLeaves(Default(), func(path string, r gjson.Result) {
		switch r.Type {
		case gjson.True, gjson.False:
			kinds[path] = loader.KindBool
		case gjson.Number:
			kinds[path] = loader.KindInt
		}
	})
	return kinds
}

// LoadWith is Load with an explicit file system and environment loader.
func LoadWith(fsys loader.FileSystem, env loader.Loader, path string) (*Config, error) {
	merged := map[string]any{}

	if path != "" {
		fl, err := loader.ForPath(fsys, path)
		if err != nil {
			return nil, err
		}
		fileCfg, err := fl.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, fileCfg)
	}

	if env != nil {
		envCfg, err := env.Load()
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, envCfg)
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays a generic settings map onto the defaults.
func decode(settings map[string]any) (*Config, error) {
	cfg := Default()
	if len(settings) == 0 {
		return cfg, nil
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, &ValidationError{Field: "config", Message: err.Error()}
	}
	return cfg, nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Keymap = maps.Clone(c.Keymap)
	return &out
}
