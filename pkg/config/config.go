// Package config loads and validates oriel's YAML configuration.
//
// Configuration is optional: every field has a default that produces a
// working terminal session, and a missing config file is not an error.
// Precedence is defaults, then the config file, then ORIEL_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values exported for documentation and validation.
const (
	DefaultTargetFPS          = 60
	DefaultRenderMode         = RenderModeDirect
	DefaultIdlePollInterval   = 50 * time.Millisecond
	DefaultFullRedrawInterval = 30 * time.Second
	DefaultLogLevel           = "info"
)

// Render modes. Direct writes each frame's diff straight to the terminal;
// buffered coalesces writes through a bufio.Writer flushed once per frame.
const (
	RenderModeDirect   = "direct"
	RenderModeBuffered = "buffered"
)

// Log levels accepted by Logging.Level.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ErrUnknownRenderMode is returned when render.mode names neither
// direct nor buffered.
var ErrUnknownRenderMode = errors.New("unknown render mode")

// Config is the root configuration shape.
type Config struct {
	Render    RenderConfig    `yaml:"render"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Layout    LayoutConfig    `yaml:"layout"`
}

// RenderConfig controls the frame loop.
type RenderConfig struct {
	// Mode selects direct or buffered terminal writes.
	Mode string `yaml:"mode"`
	// LimitFPS enables frame-rate limiting. When false the loop renders
	// as soon as a window is dirty.
	LimitFPS bool `yaml:"limit_fps"`
	// TargetFPS caps the frame rate when LimitFPS is set.
	TargetFPS int `yaml:"target_fps"`
	// FullRedraw enables the periodic full-screen repaint that papers
	// over external terminal corruption.
	FullRedraw bool `yaml:"full_redraw"`
	// FullRedrawInterval is how often the periodic repaint fires.
	FullRedrawInterval time.Duration `yaml:"full_redraw_interval"`
	// IdlePollInterval bounds how long the loop sleeps when no window
	// is dirty.
	IdlePollInterval time.Duration `yaml:"idle_poll_interval"`
}

// TerminalConfig overrides detected terminal capabilities.
type TerminalConfig struct {
	// ColorProfile forces a color profile instead of detecting one.
	// Accepted values: "", "ascii", "ansi", "ansi256", "truecolor".
	ColorProfile string `yaml:"color_profile"`
}

// LoggingConfig routes structured logs to a file. Logging to stdout is
// never an option for a program that owns the terminal.
type LoggingConfig struct {
	// Path is the log file. Empty disables logging.
	Path string `yaml:"path"`
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// TelemetryConfig toggles the metrics registry and trace exporter.
type TelemetryConfig struct {
	Metrics bool `yaml:"metrics"`
	// Trace enables span export. Spans are written to TracePath, or
	// stderr when TracePath is empty.
	Trace     bool   `yaml:"trace"`
	TracePath string `yaml:"trace_path"`
}

// LayoutConfig controls window-geometry persistence.
type LayoutConfig struct {
	// StorePath is the SQLite database holding saved layouts. Empty
	// disables persistence.
	StorePath string `yaml:"store_path"`
	// Session names the layout snapshot to save and restore.
	Session string `yaml:"session"`
}

// DefaultConfig returns sensible defaults for a detected terminal.
func DefaultConfig() *Config {
	return &Config{
		Render: RenderConfig{
			Mode:               DefaultRenderMode,
			LimitFPS:           true,
			TargetFPS:          DefaultTargetFPS,
			FullRedraw:         true,
			FullRedrawInterval: DefaultFullRedrawInterval,
			IdlePollInterval:   DefaultIdlePollInterval,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
		Layout: LayoutConfig{
			Session: "default",
		},
	}
}

// Load reads configuration with proper precedence: defaults, then the
// file at path (or the default location when path is empty), then
// ORIEL_* environment variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = defaultPath()
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// defaultPath returns ~/.oriel/config.yaml, or "" when no home
// directory can be determined.
func defaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".oriel", "config.yaml")
}

// loadFile unmarshals path over cfg. Fields absent from the file keep
// their current values.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// applyEnvOverrides applies ORIEL_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ORIEL_RENDER_MODE"); v != "" {
		cfg.Render.Mode = v
	}
	if v := os.Getenv("ORIEL_TARGET_FPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Render.TargetFPS = n
		}
	}
	if v := os.Getenv("ORIEL_COLOR_PROFILE"); v != "" {
		cfg.Terminal.ColorProfile = v
	}
	if v := os.Getenv("ORIEL_LOG_PATH"); v != "" {
		cfg.Logging.Path = v
	}
	if v := os.Getenv("ORIEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ORIEL_LAYOUT_STORE"); v != "" {
		cfg.Layout.StorePath = v
	}
}

// Validate checks field values and reports the first problem found.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Render.Mode) {
	case RenderModeDirect, RenderModeBuffered:
	default:
		return fmt.Errorf("%w: %q (valid: %s, %s)",
			ErrUnknownRenderMode, c.Render.Mode, RenderModeDirect, RenderModeBuffered)
	}

	if c.Render.LimitFPS && c.Render.TargetFPS <= 0 {
		return fmt.Errorf("render.target_fps must be > 0 when limiting, got %d", c.Render.TargetFPS)
	}
	if c.Render.TargetFPS > 1000 {
		return fmt.Errorf("render.target_fps must be <= 1000, got %d", c.Render.TargetFPS)
	}
	if c.Render.FullRedraw && c.Render.FullRedrawInterval <= 0 {
		return fmt.Errorf("render.full_redraw_interval must be > 0, got %s", c.Render.FullRedrawInterval)
	}
	if c.Render.IdlePollInterval <= 0 {
		return fmt.Errorf("render.idle_poll_interval must be > 0, got %s", c.Render.IdlePollInterval)
	}

	switch strings.ToLower(c.Terminal.ColorProfile) {
	case "", "ascii", "ansi", "ansi256", "truecolor":
	default:
		return fmt.Errorf("invalid terminal.color_profile: %q (valid: ascii, ansi, ansi256, truecolor)",
			c.Terminal.ColorProfile)
	}

	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging.level: %q (valid: debug, info, warn, error)", c.Logging.Level)
	}

	if c.Layout.StorePath != "" && c.Layout.Session == "" {
		return fmt.Errorf("layout.session is required when layout.store_path is set")
	}

	return nil
}
