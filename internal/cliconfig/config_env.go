package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "CANOPY_PLUGIN_"

func env(name string) string { return os.Getenv(EnvPrefix + name) }

// ApplyEnvConfig applies configuration from environment variables (CANOPY_PLUGIN_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if err := s.setUint64FromString("chain-id", env("CHAIN_ID"), &cfg.ChainID); err != nil {
		return err
	}
	s.setString("data-dir", env("DATA_DIR"), &cfg.DataDirPath)
	s.setString("socket", env("SOCKET"), &cfg.SocketName)
	s.setString("plugin-name", env("NAME"), &cfg.PluginName)
	if err := s.setUint64FromString("plugin-id", env("ID"), &cfg.PluginID); err != nil {
		return err
	}
	if err := s.setUint64FromString("plugin-version", env("VERSION"), &cfg.PluginVersion); err != nil {
		return err
	}
	s.setString("health-addr", env("HEALTH_ADDR"), &cfg.HealthAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setDuration("dial-timeout", env("DIAL_TIMEOUT"), &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("handshake-timeout", env("HANDSHAKE_TIMEOUT"), &cfg.HandshakeTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", env("SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("workers", env("WORKERS"), &cfg.Workers); err != nil {
		return err
	}
	if err := s.setIntFromString("max-frame-bytes", env("MAX_FRAME_BYTES"), &cfg.MaxFrameBytes); err != nil {
		return err
	}

	s.setBoolFromString("status-file", env("STATUS_FILE"), &cfg.StatusFile)

	return nil
}
