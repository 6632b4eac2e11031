package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/panjf2000/ants/v2"

	"github.com/canopy-network/plugin-playground/internal/app"
	"github.com/canopy-network/plugin-playground/internal/domain"
	"github.com/canopy-network/plugin-playground/internal/metrics"
	"github.com/canopy-network/plugin-playground/internal/transport"
	"github.com/canopy-network/plugin-playground/pkg/contract"
	"github.com/canopy-network/plugin-playground/pkg/log"
)

// RemoteError is an error reply sent by the host.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("host rejected %s: %s", e.Kind, e.Message)
}

// session serves one connection to the host.
type session struct {
	conn      *transport.Conn
	pool      *ants.Pool
	registry  *contract.Registry
	lifecycle *app.Lifecycle
	logger    log.Logger
	metrics   MetricsRecorder
	events    EventHandler

	nextID  atomic.Uint64
	pending cmap.ConcurrentMap[string, chan contract.Message]

	// requests decouples the reader from the worker pool.
	requests *queue.Queue

	endOnce sync.Once
	done    chan struct{}
	err     error
	onEnd   func(error)
}

func newSession(conn *transport.Conn, pool *ants.Pool, p *Plugin) *session {
	return &session{
		conn:      conn,
		pool:      pool,
		registry:  p.opts.registry,
		lifecycle: p.lifecycle,
		logger:    p.logger,
		metrics:   p.opts.metrics,
		events:    p.opts.eventHandler,
		pending:   cmap.New[chan contract.Message](),
		requests:  queue.New(int64(p.config.Workers)),
		done:      make(chan struct{}),
		onEnd:     p.onSessionEnd,
	}
}

// run reads frames until the connection ends. It counts as a lifecycle worker.
// Host replies are resolved on the reader even while every pool worker is busy.
func (s *session) run(ctx context.Context) {
	defer s.lifecycle.WorkerDone()

	s.lifecycle.AddWorker()
	go s.serve(ctx)

	s.end(s.readLoop())
}

func (s *session) readLoop() error {
	for {
		frame, err := s.conn.Receive()
		if err != nil {
			return err
		}

		var msg contract.Message
		if err := json.Unmarshal(frame, &msg); err != nil {
			s.logger.Warn("dropping malformed frame", log.Err(err))
			continue
		}

		if msg.Response {
			s.resolve(msg)
			continue
		}
		s.dispatch(msg)
	}
}

// end records why the session stopped, wakes pending calls and notifies the
// plugin. Only the first call has an effect.
func (s *session) end(err error) {
	s.endOnce.Do(func() {
		s.err = err
		close(s.done)
		_ = s.conn.Close()
		for range s.requests.Dispose() {
			s.lifecycle.WorkerDone()
		}
		if s.onEnd != nil {
			s.onEnd(err)
		}
	})
}

// close shuts the connection; the reader then ends the session.
func (s *session) close() {
	_ = s.conn.Close()
}

func (s *session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *session) closedErr() error {
	return fmt.Errorf("%w: %v", domain.ErrSessionClosed, s.err)
}

func (s *session) resolve(msg contract.Message) {
	ch, ok := s.pending.Pop(strconv.FormatUint(msg.ID, 10))
	if !ok {
		s.logger.Warn("dropping response without pending call",
			log.Uint64("id", msg.ID),
			log.String("kind", msg.Kind))
		return
	}
	ch <- msg
}

// dispatch queues a host request. It never blocks the reader.
func (s *session) dispatch(msg contract.Message) {
	req := contract.Request{ID: msg.ID, Kind: msg.Kind, Payload: msg.Payload}

	s.lifecycle.AddWorker()
	if err := s.requests.Put(req); err != nil {
		s.lifecycle.WorkerDone()
		s.logger.Warn("dropping request after session end",
			log.Uint64("id", req.ID),
			log.String("kind", req.Kind))
	}
}

// serve hands queued requests to the worker pool in arrival order until the
// queue is disposed.
func (s *session) serve(ctx context.Context) {
	defer s.lifecycle.WorkerDone()

	for {
		items, err := s.requests.Get(1)
		if err != nil {
			return
		}
		for _, item := range items {
			s.submit(ctx, item.(contract.Request))
		}
	}
}

func (s *session) submit(ctx context.Context, req contract.Request) {
	if s.closed() {
		s.lifecycle.WorkerDone()
		return
	}

	err := s.pool.Submit(func() {
		defer s.lifecycle.WorkerDone()
		s.handle(ctx, req)
	})
	if err != nil {
		s.lifecycle.WorkerDone()
		s.logger.Error("request rejected by worker pool",
			log.String("kind", req.Kind),
			log.Err(err))
		s.reply(req, nil, err)
	}
}

func (s *session) handle(ctx context.Context, req contract.Request) {
	start := time.Now()
	payload, err := s.invoke(ctx, req)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, contract.ErrUnsupportedKind):
		outcome = metrics.OutcomeUnsupported
	case err != nil:
		outcome = metrics.OutcomeError
	}
	s.metrics.ObserveRequest(req.Kind, outcome, elapsed)

	if err != nil {
		s.logger.Warn("request failed",
			log.Uint64("id", req.ID),
			log.String("kind", req.Kind),
			log.Err(err))
	} else {
		s.logger.Debug("request handled",
			log.Uint64("id", req.ID),
			log.String("kind", req.Kind),
			log.Duration("elapsed", elapsed))
	}

	s.reply(req, payload, err)

	if s.events != nil {
		s.events.OnRequest(RequestEvent{ID: req.ID, Kind: req.Kind, Duration: elapsed, Err: err})
	}
}

func (s *session) invoke(ctx context.Context, req contract.Request) (payload json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.registry.Dispatch(ctx, s, req)
}

func (s *session) reply(req contract.Request, payload json.RawMessage, err error) {
	msg := contract.Message{ID: req.ID, Kind: req.Kind, Response: true, Payload: payload}
	if err != nil {
		msg.Payload = nil
		msg.Error = err.Error()
	}
	if sendErr := s.send(msg); sendErr != nil {
		s.logger.Warn("failed to send reply",
			log.Uint64("id", req.ID),
			log.String("kind", req.Kind),
			log.Err(sendErr))
	}
}

func (s *session) send(msg contract.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Kind, err)
	}
	return s.conn.Send(b)
}

// Call sends a request to the host and waits for its reply.
func (s *session) Call(ctx context.Context, kind string, payload any) (json.RawMessage, error) {
	reply, err := s.call(ctx, kind, payload)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	s.metrics.ObserveCall(kind, outcome)
	return reply, err
}

func (s *session) call(ctx context.Context, kind string, payload any) (json.RawMessage, error) {
	if s.closed() {
		return nil, s.closedErr()
	}

	raw, err := encodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}

	id := s.nextID.Add(1)
	key := strconv.FormatUint(id, 10)
	ch := make(chan contract.Message, 1)
	s.pending.Set(key, ch)
	defer s.pending.Remove(key)

	if err := s.send(contract.Message{ID: id, Kind: kind, Payload: raw}); err != nil {
		return nil, err
	}

	select {
	case reply := <-ch:
		if reply.Error != "" {
			return nil, &RemoteError{Kind: kind, Message: reply.Error}
		}
		return reply.Payload, nil
	case <-s.done:
		return nil, s.closedErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// antsLogger routes worker pool messages to the plugin logger.
type antsLogger struct {
	logger log.Logger
}

func (l antsLogger) Printf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...), log.String("component", "pool"))
}
