package plugin

import "github.com/canopy-network/plugin-playground/internal/app"

// State is the lifecycle state of a Plugin.
type State int

const (
	// StateStopped means the handle has been created but not started.
	StateStopped State = iota

	// StateStarting means Start is connecting to the host.
	StateStarting

	// StateRunning means the session is established and serving requests.
	StateRunning

	// StateShuttingDown means Close is releasing the handle.
	StateShuttingDown

	// StateTerminated means the handle has been released.
	StateTerminated

	// StateCrashed means start failed or the session was lost.
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	return toApp(s).String()
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateShuttingDown:
		return StateShuttingDown
	case app.StateTerminated:
		return StateTerminated
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

func toApp(s State) app.State {
	switch s {
	case StateStarting:
		return app.StateStarting
	case StateRunning:
		return app.StateRunning
	case StateShuttingDown:
		return app.StateShuttingDown
	case StateTerminated:
		return app.StateTerminated
	case StateCrashed:
		return app.StateCrashed
	default:
		return app.StateStopped
	}
}
