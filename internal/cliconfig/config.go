package cliconfig

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/canopy-network/plugin-playground/internal/domain"
	"github.com/canopy-network/plugin-playground/pkg/log"
)

// Defaults for the playground plugin.
const (
	DefaultChainID       uint64 = 1
	DefaultDataDirPath          = "/tmp/plugin/"
	DefaultSocketName           = "plugin.sock"
	DefaultPluginName           = "playground"
	DefaultMaxFrameBytes        = 32 << 20 // 32MB
)

// Config holds the plugin configuration.
type Config struct {
	ChainID     uint64
	DataDirPath string
	SocketName  string

	PluginName    string
	PluginID      uint64
	PluginVersion uint64

	DialTimeout         time.Duration
	DialInitialInterval time.Duration
	DialMaxInterval     time.Duration
	HandshakeTimeout    time.Duration
	ShutdownTimeout     time.Duration // 0 waits for workers without a deadline

	Workers       int
	MaxFrameBytes int

	HealthAddr string
	StatusFile bool
	LogLevel   string
	LogFormat  string
}

// DefaultConfig returns a Config with default values.
// It reads neither files nor the environment, so repeated calls are equal.
func DefaultConfig() Config {
	return Config{
		ChainID:             DefaultChainID,
		DataDirPath:         DefaultDataDirPath,
		SocketName:          DefaultSocketName,
		PluginName:          DefaultPluginName,
		PluginID:            1,
		PluginVersion:       1,
		DialTimeout:         60 * time.Second,
		DialInitialInterval: 250 * time.Millisecond,
		DialMaxInterval:     5 * time.Second,
		HandshakeTimeout:    10 * time.Second,
		Workers:             4,
		MaxFrameBytes:       DefaultMaxFrameBytes,
		StatusFile:          true,
		LogLevel:            "info",
		LogFormat:           log.FormatConsole,
	}
}

// SocketPath returns the path of the FSM host's unix socket.
func (c Config) SocketPath() string {
	return filepath.Join(c.DataDirPath, c.SocketName)
}

// Validate checks the configuration for errors.
// All failures wrap domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDirPath) == "" {
		return invalid("data-dir is required")
	}
	if c.SocketName == "" {
		return invalid("socket name is required")
	}
	if strings.ContainsRune(c.SocketName, filepath.Separator) {
		return invalid("socket name must not contain a path separator")
	}
	if c.PluginName == "" {
		return invalid("plugin name is required")
	}
	if c.DialTimeout <= 0 {
		return invalid("dial timeout must be positive")
	}
	if c.DialInitialInterval <= 0 || c.DialMaxInterval < c.DialInitialInterval {
		return invalid("dial intervals must be positive and max >= initial")
	}
	if c.HandshakeTimeout <= 0 {
		return invalid("handshake timeout must be positive")
	}
	if c.ShutdownTimeout < 0 {
		return invalid("shutdown timeout must not be negative")
	}
	if c.Workers < 1 {
		return invalid("workers must be at least 1")
	}
	if c.MaxFrameBytes < 1<<10 {
		return invalid("max frame bytes must be at least 1KB")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return invalid(err.Error())
	}
	switch strings.ToLower(c.LogFormat) {
	case "", log.FormatConsole, log.FormatJSON:
	default:
		return invalid(fmt.Sprintf("unknown log format %q", c.LogFormat))
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, msg)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setUint64 sets a uint64 value if non-zero and flag not changed.
func (s *configSetter) setUint64(flag string, value uint64, dst *uint64) {
	if value == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination.
// Range checks are left to Validate.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setUint64FromString parses a string to uint64 and sets the destination if valid.
func (s *configSetter) setUint64FromString(flag, value string, dst *uint64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	u, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if u == 0 {
		return nil
	}
	*dst = u
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
