// Package bootstrap runs the plugin process: banner, configuration, start,
// wait for a termination signal, release.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/canopy-network/plugin-playground/internal/cliconfig"
	"github.com/canopy-network/plugin-playground/internal/domain"
	"github.com/canopy-network/plugin-playground/pkg/log"
)

// Console lines printed by Run, in order.
const (
	bannerFormat = "Canopy Plugin Playground %s (Go)\n"
	startedLine  = "Plugin started - waiting for FSM requests..."
	signalLine   = "Received shutdown signal"
	shutdownLine = "Plugin shut down gracefully"
)

// Handle is the part of the plugin handle the bootstrap drives.
type Handle interface {
	Start(ctx context.Context) error
	Close() error
	Done() <-chan struct{}
	Err() error
}

// Options wires Run to its collaborators.
type Options struct {
	// Version is printed in the banner.
	Version string

	// Out receives the console lines. Default: os.Stdout
	Out io.Writer

	// Err receives structured logs. Default: os.Stderr
	Err io.Writer

	// Load builds the configuration.
	Load func() (cliconfig.Config, error)

	// NewPlugin constructs the handle from the loaded configuration.
	NewPlugin func(cfg cliconfig.Config, logger log.Logger) (Handle, error)
}

// Run executes the plugin process until ctx is cancelled by a termination
// signal or the session ends. It returns nil on graceful shutdown; any error
// means the process should exit with a failure status. The handle, once
// constructed, is released exactly once.
func Run(ctx context.Context, opts Options) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := opts.Err
	if errOut == nil {
		errOut = os.Stderr
	}

	fmt.Fprintf(out, bannerFormat, opts.Version)

	cfg, err := opts.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "  Chain ID: %d\n", cfg.ChainID)
	fmt.Fprintf(out, "  Data Directory: %s\n", cfg.DataDirPath)

	logger, err := log.New(log.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: errOut})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	h, err := opts.NewPlugin(cfg, logger)
	if err != nil {
		return fmt.Errorf("create plugin: %w", err)
	}

	if err := h.Start(ctx); err != nil {
		if ctx.Err() != nil {
			// Termination requested while still connecting.
			logger.Info("shutdown requested during start", log.Err(err))
			return shutdown(out, h, logger)
		}
		if closeErr := h.Close(); closeErr != nil {
			logger.Warn("release after failed start", log.Err(closeErr))
		}
		return fmt.Errorf("start plugin: %w", err)
	}
	fmt.Fprintln(out, startedLine)

	select {
	case <-ctx.Done():
		return shutdown(out, h, logger)
	case <-h.Done():
		cause := h.Err()
		if cause == nil {
			cause = domain.ErrSessionClosed
		}
		if closeErr := h.Close(); closeErr != nil {
			logger.Warn("release after session loss", log.Err(closeErr))
		}
		return fmt.Errorf("plugin stopped: %w", cause)
	}
}

func shutdown(out io.Writer, h Handle, logger log.Logger) error {
	fmt.Fprintln(out, signalLine)
	if err := h.Close(); err != nil {
		if !errors.Is(err, domain.ErrShutdownTimeout) {
			logger.Error("release failed", log.Err(err))
		} else {
			logger.Warn("release timed out", log.Err(err))
		}
	}
	fmt.Fprintln(out, shutdownLine)
	return nil
}
