package healthserver

import "github.com/canopy-network/plugin-playground/pkg/plugin"

// WithHealthServerConfig returns a plugin Option that serves health and
// metrics endpoints while the plugin runs.
//
// Usage:
//
//	p, err := plugin.New(cfg,
//	    plugin.WithMetrics(metrics.New()),
//	    healthserver.WithHealthServerConfig(healthserver.DefaultConfig("127.0.0.1:9090")),
//	)
func WithHealthServerConfig(cfg Config) plugin.Option {
	return plugin.WithExtension(New(cfg))
}
