package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pflag "github.com/spf13/pflag"

	"github.com/canopy-network/plugin-playground/internal/cliconfig"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

// flagSet binds the flags loadConfig cares about, like newRootCommand does.
func flagSet(cfg *cliconfig.Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Uint64Var(&cfg.ChainID, "chain-id", cfg.ChainID, "")
	fs.StringVar(&cfg.DataDirPath, "data-dir", cfg.DataDirPath, "")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "")
	return fs
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "playground.toml", `
chain_id = 10
data_dir = "/from/file"
workers = 2
dial_timeout = "30s"
`)
	envPath := writeFile(t, dir, ".env", "CANOPY_PLUGIN_WORKERS=6\nCANOPY_PLUGIN_DIAL_TIMEOUT=45s\n")
	// Register cleanup for the variable only the .env file sets.
	t.Setenv("CANOPY_PLUGIN_WORKERS", "")
	os.Unsetenv("CANOPY_PLUGIN_WORKERS")
	t.Setenv("CANOPY_PLUGIN_DATA_DIR", "/from/env")
	t.Setenv("CANOPY_PLUGIN_DIAL_TIMEOUT", "20s")

	cfg := cliconfig.DefaultConfig()
	fs := flagSet(&cfg)
	if err := fs.Parse([]string{"--chain-id", "99"}); err != nil {
		t.Fatal(err)
	}

	got, err := loadConfig(fs, cfg, cfgPath, envPath)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	// flag > env > .env > file > default
	if got.ChainID != 99 {
		t.Errorf("ChainID = %d, want 99 (flag)", got.ChainID)
	}
	if got.DataDirPath != "/from/env" {
		t.Errorf("DataDirPath = %q, want /from/env (env)", got.DataDirPath)
	}
	if got.DialTimeout != 20*time.Second {
		t.Errorf("DialTimeout = %v, want 20s (env over .env)", got.DialTimeout)
	}
	if got.Workers != 6 {
		t.Errorf("Workers = %d, want 6 (.env)", got.Workers)
	}
	if got.SocketName != cliconfig.DefaultSocketName {
		t.Errorf("SocketName = %q, want default", got.SocketName)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	cfg := cliconfig.DefaultConfig()
	_, err := loadConfig(flagSet(&cfg), cfg, filepath.Join(t.TempDir(), "nope.toml"), "")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("loadConfig() error = %v, want not found", err)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cfg := cliconfig.DefaultConfig()
	fs := flagSet(&cfg)
	if err := fs.Parse([]string{"--workers", "0"}); err != nil {
		t.Fatal(err)
	}
	emptyFile := writeFile(t, t.TempDir(), "empty.toml", "")

	if _, err := loadConfig(fs, cfg, emptyFile, ""); err == nil {
		t.Fatal("expected validation error for zero workers")
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "v0.1.0" {
		t.Errorf("version = %q, want v0.1.0", got)
	}
}
