package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				ChainID:         5,
				DataDirPath:     "/var/canopy/plugin",
				SocketName:      "fsm.sock",
				DialTimeout:     "2m",
				ShutdownTimeout: "3s",
				Workers:         8,
				StatusFile:      &falseVal,
				LogLevel:        "debug",
			},
			changed: map[string]bool{},
			initial: Config{StatusFile: true},
			expected: Config{
				ChainID:         5,
				DataDirPath:     "/var/canopy/plugin",
				SocketName:      "fsm.sock",
				DialTimeout:     2 * time.Minute,
				ShutdownTimeout: 3 * time.Second,
				Workers:         8,
				StatusFile:      false,
				LogLevel:        "debug",
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				ChainID:     9,
				DataDirPath: "/from/file",
				StatusFile:  &trueVal,
			},
			changed: map[string]bool{"data-dir": true, "status-file": true},
			initial: Config{DataDirPath: "/from/flag"},
			expected: Config{
				ChainID:     9,
				DataDirPath: "/from/flag",
				StatusFile:  false,
			},
		},
		{
			name:       "zero values leave defaults alone",
			fileConfig: FileConfig{},
			changed:    map[string]bool{},
			initial:    DefaultConfig(),
			expected:   DefaultConfig(),
		},
		{
			name:       "invalid duration",
			fileConfig: FileConfig{HandshakeTimeout: "soon"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("config = %+v\nwant     %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "playground.toml")
	content := `
chain_id = 3
data_dir = "/srv/plugin"
socket = "host.sock"
dial_timeout = "30s"
workers = 2
status_file = false
health_addr = "127.0.0.1:9090"
log_format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}
	if fc.ChainID != 3 || fc.DataDirPath != "/srv/plugin" || fc.SocketName != "host.sock" {
		t.Errorf("unexpected file config: %+v", fc)
	}
	if fc.StatusFile == nil || *fc.StatusFile {
		t.Errorf("StatusFile = %v, want false", fc.StatusFile)
	}
	if fc.HealthAddr != "127.0.0.1:9090" || fc.LogFormat != "json" {
		t.Errorf("unexpected file config: %+v", fc)
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadFileConfig() on missing file returned nil error")
	}

	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("chain_id = [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFileConfig(path)
	if err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("LoadFileConfig() error = %v, want parse error", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CANOPY_PLUGIN_SOCKET=dotenv.sock\nCANOPY_PLUGIN_WORKERS=6\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	// An already-set variable wins over the file.
	t.Setenv("CANOPY_PLUGIN_WORKERS", "3")
	// Register cleanup for the variable the file sets.
	t.Setenv("CANOPY_PLUGIN_SOCKET", "")
	os.Unsetenv("CANOPY_PLUGIN_SOCKET")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("CANOPY_PLUGIN_SOCKET"); got != "dotenv.sock" {
		t.Errorf("CANOPY_PLUGIN_SOCKET = %q, want dotenv.sock", got)
	}
	if got := os.Getenv("CANOPY_PLUGIN_WORKERS"); got != "3" {
		t.Errorf("CANOPY_PLUGIN_WORKERS = %q, want 3", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("LoadDotEnv() on missing file = %v, want nil", err)
	}
	if err := LoadDotEnv(""); err != nil {
		t.Errorf("LoadDotEnv(\"\") = %v, want nil", err)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	if !FileExists(dir) {
		t.Error("FileExists() = false for temp dir")
	}
	if FileExists(filepath.Join(dir, "nope")) {
		t.Error("FileExists() = true for missing path")
	}
}
