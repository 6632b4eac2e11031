package cliconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ChainID          uint64 `toml:"chain_id"`
	DataDirPath      string `toml:"data_dir"`
	SocketName       string `toml:"socket"`
	PluginName       string `toml:"plugin_name"`
	PluginID         uint64 `toml:"plugin_id"`
	PluginVersion    uint64 `toml:"plugin_version"`
	DialTimeout      string `toml:"dial_timeout"`
	HandshakeTimeout string `toml:"handshake_timeout"`
	ShutdownTimeout  string `toml:"shutdown_timeout"`
	Workers          int    `toml:"workers"`
	MaxFrameBytes    int    `toml:"max_frame_bytes"`
	HealthAddr       string `toml:"health_addr"`
	StatusFile       *bool  `toml:"status_file"`
	LogLevel         string `toml:"log_level"`
	LogFormat        string `toml:"log_format"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.canopy-plugin/playground.toml if the user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".canopy-plugin", "playground.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setUint64("chain-id", fc.ChainID, &cfg.ChainID)
	s.setString("data-dir", fc.DataDirPath, &cfg.DataDirPath)
	s.setString("socket", fc.SocketName, &cfg.SocketName)
	s.setString("plugin-name", fc.PluginName, &cfg.PluginName)
	s.setUint64("plugin-id", fc.PluginID, &cfg.PluginID)
	s.setUint64("plugin-version", fc.PluginVersion, &cfg.PluginVersion)
	s.setString("health-addr", fc.HealthAddr, &cfg.HealthAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	if err := s.setDuration("dial-timeout", fc.DialTimeout, &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("handshake-timeout", fc.HandshakeTimeout, &cfg.HandshakeTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setInt("workers", fc.Workers, &cfg.Workers)
	s.setInt("max-frame-bytes", fc.MaxFrameBytes, &cfg.MaxFrameBytes)
	s.setBool("status-file", fc.StatusFile, &cfg.StatusFile)

	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set keep their value. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
