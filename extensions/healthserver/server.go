// Package healthserver exposes liveness, readiness and metrics endpoints for
// a running plugin.
package healthserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/canopy-network/plugin-playground/pkg/log"
	"github.com/canopy-network/plugin-playground/pkg/plugin"
)

// Config holds configuration options for the health server.
type Config struct {
	// Addr is the TCP address to listen on, e.g. "127.0.0.1:9090".
	Addr string

	// MaxGoroutines fails the liveness check above this count.
	// Default: 10000
	MaxGoroutines int

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 5 seconds
	ReadHeaderTimeout time.Duration

	// ReadinessChecks are evaluated by /ready in addition to the session state.
	ReadinessChecks map[string]healthcheck.Check
}

// DefaultConfig returns a Config listening on addr with default limits.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:              addr,
		MaxGoroutines:     10000,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Server serves /live, /ready and /metrics.
type Server struct {
	cfg Config

	mu     sync.Mutex
	server *http.Server
	ln     net.Listener
	logger log.Logger
	done   chan struct{}
}

// New creates a health server extension.
func New(cfg Config) *Server {
	if cfg.MaxGoroutines <= 0 {
		cfg.MaxGoroutines = 10000
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	return &Server{cfg: cfg}
}

// Name returns the extension identifier.
func (s *Server) Name() string {
	return "healthserver"
}

// Initialize binds the listener and starts serving in the background.
func (s *Server) Initialize(ctx context.Context, cfg plugin.ExtensionConfig) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.logger = cfg.Logger
	s.server = &http.Server{
		Handler:           Handler(cfg, s.cfg),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	s.done = make(chan struct{})
	srv, done := s.server, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Logger.Error("health server stopped", log.Err(err))
		}
	}()

	cfg.Logger.Info("health server listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Shutdown stops the server, waiting for active requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	<-done
	return nil
}

// Addr returns the bound address, or "" before Initialize.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Handler builds the endpoint mux. The plugin is ready only while Running.
func Handler(cfg plugin.ExtensionConfig, c Config) http.Handler {
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(c.MaxGoroutines))
	for name, check := range c.ReadinessChecks {
		health.AddReadinessCheck(name, check)
	}
	health.AddReadinessCheck("session", func() error {
		if cfg.Status == nil {
			return errors.New("status unavailable")
		}
		if st := cfg.Status(); st != plugin.StateRunning {
			return fmt.Errorf("plugin is %s", st)
		}
		return nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)
	if cfg.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}
