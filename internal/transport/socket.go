package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
)

// DialConfig controls how the plugin reaches the FSM host.
type DialConfig struct {
	// Path of the host's unix socket.
	Path string

	// Timeout bounds waiting for the socket plus all dial attempts.
	Timeout time.Duration

	InitialInterval time.Duration
	MaxInterval     time.Duration

	// OnAttempt, if set, is called after every dial attempt.
	OnAttempt func(attempt int, err error)
}

// Dial waits for the socket file to appear, then connects with exponential
// backoff until it succeeds, ctx is done, or cfg.Timeout elapses.
func Dial(ctx context.Context, cfg DialConfig) (net.Conn, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := WaitForSocket(ctx, cfg.Path); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", cfg.Path, err)
	}

	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	b.MaxElapsedTime = 0 // bounded by ctx

	var d net.Dialer
	attempt := 0
	op := func() (net.Conn, error) {
		attempt++
		conn, err := d.DialContext(ctx, "unix", cfg.Path)
		if cfg.OnAttempt != nil {
			cfg.OnAttempt(attempt, err)
		}
		return conn, err
	}

	conn, err := backoff.RetryWithData[net.Conn](op, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Path, err)
	}
	return conn, nil
}

// WaitForSocket returns once path exists. The parent directory is created if
// needed and watched with fsnotify so no polling is involved.
func WaitForSocket(ctx context.Context, path string) error {
	if exists(path) {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	// The socket may have been created between the first check and Add.
	if exists(path) {
		return nil
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if filepath.Clean(event.Name) == target && event.Op&fsnotify.Create != 0 {
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
