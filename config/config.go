package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// OutputConfig selects the synth output ports
type OutputConfig struct {
	PortCount int    `json:"portCount"`
	Selector  string `json:"selector"` // case-insensitive substring of the port name
}

// Config is the main configuration structure
type Config struct {
	Output       OutputConfig `json:"output"`
	BendRange    float64      `json:"bendRange"`    // synth pitch-bend range in semitones
	PanicDelayMS int          `json:"panicDelayMs"` // pause after each channel during panic
	LogLevel     string       `json:"logLevel,omitempty"`
	LogFile      string       `json:"logFile,omitempty"`
	Palette      string       `json:"palette,omitempty"` // GIMP .gpl palette for the monitor
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			PortCount: 1,
			Selector:  "zynaddsubfx",
		},
		BendRange:    2,
		PanicDelayMS: 50,
		LogLevel:     "info",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-microtone"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path over the defaults. A missing file
// yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, creating its directory.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides fields from MICROTONE_PORTS, MICROTONE_SELECTOR,
// MICROTONE_BEND_RANGE and LOG_LEVEL. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("MICROTONE_PORTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MICROTONE_PORTS: %w", err)
		}
		c.Output.PortCount = n
	}
	if v := getenv("MICROTONE_SELECTOR"); v != "" {
		c.Output.Selector = v
	}
	if v := getenv("MICROTONE_BEND_RANGE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MICROTONE_BEND_RANGE: %w", err)
		}
		c.BendRange = r
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate checks the config for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Output.PortCount < 1 {
		return fmt.Errorf("port count must be at least 1, got %d", c.Output.PortCount)
	}
	if c.BendRange <= 0 {
		return fmt.Errorf("bend range must be positive, got %g", c.BendRange)
	}
	if c.PanicDelayMS < 0 {
		return fmt.Errorf("panic delay must be non-negative, got %d", c.PanicDelayMS)
	}
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}
	return nil
}

// PanicDelay returns the panic pause as a duration
func (c *Config) PanicDelay() time.Duration {
	return time.Duration(c.PanicDelayMS) * time.Millisecond
}
