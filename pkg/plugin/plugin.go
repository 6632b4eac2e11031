package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/canopy-network/plugin-playground/internal/app"
	"github.com/canopy-network/plugin-playground/internal/domain"
	"github.com/canopy-network/plugin-playground/internal/transport"
	"github.com/canopy-network/plugin-playground/pkg/contract"
	"github.com/canopy-network/plugin-playground/pkg/log"
)

// Plugin is a handle on one session with the FSM host.
// Use New() to create an instance, Start() to connect and Close() to release it.
type Plugin struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	logger    log.Logger
	sessionID string

	mu          sync.Mutex
	closing     bool
	cancelStart context.CancelFunc
	starting    sync.WaitGroup
	pool        *ants.Pool
	started     []Extension

	// sess is read without mu so Call works from state change handlers.
	sess atomic.Pointer[session]

	done     chan struct{}
	doneOnce sync.Once
	errMu    sync.RWMutex
	err      error

	closeOnce sync.Once
	closeErr  error
}

// New creates a new Plugin with the given configuration.
// The instance is created in StateStopped; call Start() to connect.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()
	logger := log.With(o.logger,
		log.String("plugin", cfg.PluginName),
		log.String("session", id))

	p := &Plugin{
		config:    cfg,
		opts:      o,
		logger:    logger,
		sessionID: id,
		done:      make(chan struct{}),
	}
	p.lifecycle = app.NewLifecycle(logger, &eventEmitterWrapper{p: p})
	return p, nil
}

// SessionID identifies this handle in logs, metrics and the status file.
func (p *Plugin) SessionID() string {
	return p.sessionID
}

// Start connects to the FSM host and performs the handshake.
// It returns once the session is running or the attempt failed; ctx bounds
// the connection attempt only. Start may be called once.
func (p *Plugin) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return domain.ErrClosed
	}
	if !p.lifecycle.CanStart() {
		p.mu.Unlock()
		return domain.ErrAlreadyStarted
	}
	if err := p.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		p.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.lifecycle.SetCancel(cancel)
	startCtx, cancelStart := context.WithCancel(ctx)
	p.cancelStart = cancelStart
	p.starting.Add(1)
	p.mu.Unlock()

	defer p.starting.Done()
	defer cancelStart()

	if err := p.start(startCtx, runCtx); err != nil {
		if sess := p.sess.Load(); sess != nil {
			sess.close()
		}
		p.mu.Lock()
		closing := p.closing
		p.mu.Unlock()

		// A canceled caller context is a shutdown request, not a crash:
		// Close takes the handle from Starting to ShuttingDown.
		if closing || ctx.Err() != nil {
			p.logger.Info("plugin start canceled", log.Err(err))
			return err
		}
		p.logger.Error("plugin start failed", log.Err(err))
		p.setErr(err)
		_ = p.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}
	return nil
}

func (p *Plugin) start(ctx, runCtx context.Context) error {
	extCfg := ExtensionConfig{
		PluginName:  p.config.PluginName,
		ChainID:     p.config.ChainID,
		DataDirPath: p.config.DataDirPath,
		SessionID:   p.sessionID,
		Logger:      p.logger,
		Status:      p.Status,
	}
	if g, ok := p.opts.metrics.(gathererProvider); ok {
		extCfg.Gatherer = g.Gatherer()
	}
	for _, ext := range p.opts.extensions {
		if err := ext.Initialize(ctx, extCfg); err != nil {
			return fmt.Errorf("extension %s: %w", ext.Name(), err)
		}
		p.mu.Lock()
		p.started = append(p.started, ext)
		p.mu.Unlock()
		p.logger.Info("extension initialized", log.String("extension", ext.Name()))
	}

	path := p.config.SocketPath()
	p.logger.Info("connecting to FSM host", log.String("socket", path))
	nc, err := p.opts.dialer(ctx, DialConfig{
		Path:            path,
		Timeout:         p.config.DialTimeout,
		InitialInterval: p.config.DialInitialInterval,
		MaxInterval:     p.config.DialMaxInterval,
		OnAttempt: func(attempt int, err error) {
			p.opts.metrics.ObserveDial(err)
			if err != nil {
				p.logger.Debug("dial attempt failed",
					log.Int("attempt", attempt),
					log.Err(err))
			}
		},
	})
	if err != nil {
		return err
	}

	pool, err := ants.NewPool(p.config.Workers,
		ants.WithLogger(antsLogger{logger: p.logger}),
		ants.WithPanicHandler(func(r any) {
			p.logger.Error("worker panic", log.Any("panic", r))
		}),
	)
	if err != nil {
		_ = nc.Close()
		return fmt.Errorf("create worker pool: %w", err)
	}

	sess := newSession(transport.NewConn(nc, p.config.MaxFrameBytes), pool, p)
	p.sess.Store(sess)
	p.mu.Lock()
	p.pool = pool
	p.mu.Unlock()

	p.lifecycle.AddWorker()
	go sess.run(runCtx)

	if err := p.handshake(ctx, sess); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing {
		return domain.ErrClosed
	}
	if sess.closed() {
		return sess.closedErr()
	}
	if err := p.lifecycle.TransitionTo(app.StateRunning, "handshake accepted"); err != nil {
		return err
	}
	p.logger.Info("plugin running",
		log.Uint64("chain_id", p.config.ChainID),
		log.Int("workers", p.config.Workers))
	return nil
}

func (p *Plugin) handshake(ctx context.Context, sess *session) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.HandshakeTimeout)
	defer cancel()

	manifest := contract.Manifest{
		Name:           p.config.PluginName,
		ID:             p.config.PluginID,
		Version:        p.config.PluginVersion,
		ChainID:        p.config.ChainID,
		Session:        p.sessionID,
		SupportedKinds: p.opts.registry.Kinds(),
	}
	if _, err := sess.Call(ctx, contract.KindHandshake, manifest); err != nil {
		var remote *RemoteError
		if errors.As(err, &remote) {
			return fmt.Errorf("%w: %s", domain.ErrHandshakeRejected, remote.Message)
		}
		return fmt.Errorf("handshake: %w", err)
	}
	return nil
}

// onSessionEnd is called by the reader when the connection ends.
func (p *Plugin) onSessionEnd(cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closing || p.lifecycle.State() != app.StateRunning {
		return
	}
	err := fmt.Errorf("%w: %v", domain.ErrSessionClosed, cause)
	if p.lifecycle.TransitionTo(app.StateCrashed, "session lost") != nil {
		return
	}
	p.logger.Error("session ended by host", log.Err(cause))
	p.setErr(err)
	p.signalDone()
}

// Close releases the handle: it aborts a pending Start, closes the session,
// waits for in-flight requests and shuts down extensions.
// Close is idempotent; every call returns the result of the first.
func (p *Plugin) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.close()
	})
	return p.closeErr
}

func (p *Plugin) close() error {
	p.mu.Lock()
	p.closing = true
	if p.cancelStart != nil {
		p.cancelStart()
	}
	p.mu.Unlock()

	p.starting.Wait()

	if err := p.lifecycle.TransitionTo(app.StateShuttingDown, "Close() called"); err != nil {
		p.logger.Warn("unexpected state on close",
			log.String("state", p.lifecycle.State().String()),
			log.Err(err))
	}
	p.lifecycle.Cancel()

	p.mu.Lock()
	pool, started := p.pool, p.started
	p.mu.Unlock()
	sess := p.sess.Load()

	if sess != nil {
		sess.close()
	}

	var errs []error
	if err := p.lifecycle.WaitWithTimeout(p.config.ShutdownTimeout); err != nil {
		errs = append(errs, err)
	}
	if pool != nil {
		pool.Release()
	}

	ctx := context.Background()
	if p.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ShutdownTimeout)
		defer cancel()
	}
	for i := len(started) - 1; i >= 0; i-- {
		ext := started[i]
		if err := ext.Shutdown(ctx); err != nil {
			p.logger.Error("extension shutdown failed",
				log.String("extension", ext.Name()),
				log.Err(err))
			errs = append(errs, fmt.Errorf("extension %s: %w", ext.Name(), err))
		} else {
			p.logger.Debug("extension shutdown complete", log.String("extension", ext.Name()))
		}
	}

	_ = p.lifecycle.TransitionTo(app.StateTerminated, "released")
	p.signalDone()
	p.logger.Info("plugin released")
	return errors.Join(errs...)
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (p *Plugin) Status() State {
	return convertState(p.lifecycle.State())
}

// Done is closed when the session ends on its own or the handle is released.
func (p *Plugin) Done() <-chan struct{} {
	return p.done
}

// Err returns why the session ended, or nil if it is still running or was
// released by Close.
func (p *Plugin) Err() error {
	p.errMu.RLock()
	defer p.errMu.RUnlock()
	return p.err
}

// Call sends a request to the FSM host and waits for the reply.
// It may be called from an EventHandler once the handle is Running.
func (p *Plugin) Call(ctx context.Context, kind string, payload any) (json.RawMessage, error) {
	sess := p.sess.Load()
	if p.lifecycle.State() != app.StateRunning || sess == nil {
		return nil, domain.ErrNotRunning
	}
	return sess.Call(ctx, kind, payload)
}

func (p *Plugin) setErr(err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *Plugin) signalDone() {
	p.doneOnce.Do(func() { close(p.done) })
}

// eventEmitterWrapper fans lifecycle transitions out to the event handler,
// the metrics recorder and observing extensions.
type eventEmitterWrapper struct {
	p *Plugin
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	o := e.p.opts
	o.metrics.SetState(previous.String(), current.String())

	event := StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	}
	if o.eventHandler != nil {
		o.eventHandler.OnStateChange(event)
	}
	for _, ext := range o.extensions {
		if obs, ok := ext.(StateObserver); ok {
			obs.OnStateChange(event)
		}
	}
}
