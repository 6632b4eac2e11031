package playground

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/plugin-playground/extensions/statusfile"
	"github.com/canopy-network/plugin-playground/pkg/log"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, uint64(1), cfg.ChainID)
	assert.Equal(t, "/tmp/plugin/", cfg.DataDirPath)
	assert.Equal(t, cfg, DefaultConfig())
}

func TestStartPlugin_FailureReleasesHandle(t *testing.T) {
	dir, err := os.MkdirTemp("", "pp")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cfg := DefaultConfig()
	cfg.DataDirPath = dir
	cfg.DialTimeout = 50 * time.Millisecond

	p, err := StartPlugin(context.Background(), cfg, log.NewNoopLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, p)

	rec, err := statusfile.NewFileRepository(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "Terminated", rec.State)
}

func TestNewPlugin_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDirPath = ""

	_, err := NewPlugin(cfg, log.NewNoopLogger())
	assert.Error(t, err)
}
