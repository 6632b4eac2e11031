package plugin

import (
	"context"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/canopy-network/plugin-playground/internal/cliconfig"
	"github.com/canopy-network/plugin-playground/internal/transport"
	"github.com/canopy-network/plugin-playground/pkg/contract"
	"github.com/canopy-network/plugin-playground/pkg/log"
)

// Config is the plugin configuration.
type Config = cliconfig.Config

// DialConfig describes how the host socket is reached.
type DialConfig = transport.DialConfig

// DefaultConfig returns the default plugin configuration.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// Dialer connects to the FSM host.
type Dialer func(ctx context.Context, cfg DialConfig) (net.Conn, error)

// MetricsRecorder receives the plugin's measurements.
// *metrics.Metrics from internal/metrics satisfies this interface.
type MetricsRecorder interface {
	ObserveRequest(kind, outcome string, d time.Duration)
	ObserveCall(kind, outcome string)
	ObserveDial(err error)
	SetState(previous, current string)
}

// gathererProvider is implemented by recorders that can be scraped.
type gathererProvider interface {
	Gatherer() prometheus.Gatherer
}

// Option configures optional behavior of a Plugin.
type Option func(*options)

type options struct {
	logger       log.Logger
	registry     *contract.Registry
	eventHandler EventHandler
	metrics      MetricsRecorder
	dialer       Dialer
	extensions   []Extension
}

func defaultOptions() options {
	return options{
		logger:   log.NewNoopLogger(),
		registry: contract.Playground(),
		metrics:  noopMetrics{},
		dialer:   transport.Dial,
	}
}

// WithLogger sets the logger. If not provided, nothing is logged.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithContract sets the contract that serves host requests.
// If not provided, contract.Playground() is used.
func WithContract(r *contract.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithEventHandler sets a handler for plugin events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithDialer replaces the unix socket dialer, mostly for tests.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithExtension registers an extension. Extensions are initialized in
// registration order and shut down in reverse order.
func WithExtension(ext Extension) Option {
	return func(o *options) {
		o.extensions = append(o.extensions, ext)
	}
}

type noopMetrics struct{}

func (noopMetrics) ObserveRequest(string, string, time.Duration) {}
func (noopMetrics) ObserveCall(string, string)                   {}
func (noopMetrics) ObserveDial(error)                            {}
func (noopMetrics) SetState(string, string)                      {}
