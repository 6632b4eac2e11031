package domain

import "errors"

// Domain errors represent error conditions of the plugin handle.
// They are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyStarted is returned when Start() is called more than once.
	ErrAlreadyStarted = errors.New("playground: already started")

	// ErrNotRunning is returned when an operation needs a running session.
	ErrNotRunning = errors.New("playground: not running")

	// ErrClosed is returned by operations on a released handle.
	ErrClosed = errors.New("playground: plugin closed")

	// ErrInvalidTransition is returned when a lifecycle transition is not allowed.
	ErrInvalidTransition = errors.New("playground: invalid state transition")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("playground: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("playground: invalid configuration")

	// ErrHandshakeRejected is returned when the FSM host refuses the plugin.
	ErrHandshakeRejected = errors.New("playground: handshake rejected")

	// ErrSessionClosed is returned when the FSM host ends the session.
	ErrSessionClosed = errors.New("playground: session closed by host")

	// ErrFrameTooLarge is returned for frames above the configured limit.
	ErrFrameTooLarge = errors.New("playground: frame too large")
)
