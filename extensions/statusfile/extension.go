// Package statusfile keeps a JSON snapshot of the plugin's lifecycle state in
// its data directory, so operators and the host can see what the plugin is doing.
package statusfile

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/canopy-network/plugin-playground/pkg/log"
	"github.com/canopy-network/plugin-playground/pkg/plugin"
)

// Extension writes the status file on every lifecycle transition.
type Extension struct {
	mu     sync.Mutex
	repo   *FileRepository
	rec    Record
	logger log.Logger
	now    func() time.Time
}

// New creates a status file extension.
func New() *Extension {
	return &Extension{now: time.Now}
}

// Name returns the extension identifier.
func (e *Extension) Name() string {
	return "statusfile"
}

// Initialize writes the first record.
func (e *Extension) Initialize(ctx context.Context, cfg plugin.ExtensionConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.repo = NewFileRepository(cfg.DataDirPath)
	e.logger = cfg.Logger
	e.rec = Record{
		Session: cfg.SessionID,
		Plugin:  cfg.PluginName,
		PID:     os.Getpid(),
		ChainID: cfg.ChainID,
		State:   plugin.StateStarting.String(),
	}
	if cfg.Status != nil {
		e.rec.State = cfg.Status().String()
	}
	return e.save()
}

// OnStateChange records the transition. Events before Initialize are ignored.
func (e *Extension) OnStateChange(event plugin.StateChangeEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.repo == nil {
		return
	}
	e.rec.State = event.Current.String()
	e.rec.Reason = event.Reason
	if err := e.save(); err != nil {
		e.logger.Warn("failed to write status file",
			log.String("path", e.repo.Path()),
			log.Err(err))
	}
}

// Shutdown leaves the file in place; the final transition is still recorded.
func (e *Extension) Shutdown(ctx context.Context) error {
	return nil
}

func (e *Extension) save() error {
	e.rec.UpdatedAt = e.now().UTC()
	return e.repo.Save(e.rec)
}
