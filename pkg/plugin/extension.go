package plugin

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/canopy-network/plugin-playground/pkg/log"
)

// Extension is an optional component that runs alongside the session.
type Extension interface {
	// Name returns a unique identifier for the extension.
	Name() string

	// Initialize is called by Start before the host is dialed.
	// Returning an error aborts Start.
	Initialize(ctx context.Context, cfg ExtensionConfig) error

	// Shutdown is called by Close, in reverse registration order.
	Shutdown(ctx context.Context) error
}

// StateObserver is implemented by extensions that want lifecycle transitions.
type StateObserver interface {
	OnStateChange(event StateChangeEvent)
}

// ExtensionConfig is what an extension gets to know about the plugin.
type ExtensionConfig struct {
	PluginName  string
	ChainID     uint64
	DataDirPath string
	SessionID   string
	Logger      log.Logger

	// Gatherer exposes the plugin metrics, nil if none are recorded.
	Gatherer prometheus.Gatherer

	// Status reports the current lifecycle state.
	Status func() State
}
