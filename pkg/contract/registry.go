package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registration errors.
var (
	ErrUnsupportedKind = errors.New("unsupported kind")
	ErrDuplicateKind   = errors.New("kind already registered")
	ErrReservedKind    = errors.New("kind is reserved")
)

// Handler serves one request kind.
type Handler interface {
	Handle(ctx context.Context, host Host, req Request) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, host Host, req Request) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, host Host, req Request) (any, error) {
	return f(ctx, host, req)
}

// Registry maps request kinds to handlers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds h to kind.
func (r *Registry) Register(kind string, h Handler) error {
	if kind == "" {
		return errors.New("kind must not be empty")
	}
	if kind == KindHandshake {
		return fmt.Errorf("%w: %s", ErrReservedKind, kind)
	}
	if h == nil {
		return fmt.Errorf("nil handler for %s", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[kind]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
	}
	r.handlers[kind] = h
	return nil
}

// HandleFunc registers f for kind.
func (r *Registry) HandleFunc(kind string, f HandlerFunc) error {
	if f == nil {
		return fmt.Errorf("nil handler for %s", kind)
	}
	return r.Register(kind, f)
}

// Lookup returns the handler bound to kind.
func (r *Registry) Lookup(kind string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	r.mu.RUnlock()

	sort.Strings(kinds)
	return kinds
}

// Dispatch runs the handler for req.Kind and encodes its result.
// A nil result yields an empty payload; json.RawMessage results pass through.
func (r *Registry) Dispatch(ctx context.Context, host Host, req Request) (json.RawMessage, error) {
	h, ok := r.Lookup(req.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, req.Kind)
	}

	result, err := h.Handle(ctx, host, req)
	if err != nil {
		return nil, err
	}

	switch v := result.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s result: %w", req.Kind, err)
		}
		return b, nil
	}
}
