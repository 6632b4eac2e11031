package plugin

import "time"

// EventHandler receives notifications about plugin operations.
// Methods are called synchronously; implementations should return quickly
// and must not call Start or Close. Plugin.Call is allowed.
type EventHandler interface {
	// OnStateChange is called when the lifecycle state changes.
	OnStateChange(event StateChangeEvent)

	// OnRequest is called after a host request has been answered.
	OnRequest(event RequestEvent)
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// RequestEvent describes one handled host request.
type RequestEvent struct {
	ID       uint64
	Kind     string
	Duration time.Duration
	Err      error
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only the events you need.
type BaseEventHandler struct{}

// OnStateChange does nothing.
func (BaseEventHandler) OnStateChange(StateChangeEvent) {}

// OnRequest does nothing.
func (BaseEventHandler) OnRequest(RequestEvent) {}
