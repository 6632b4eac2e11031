// Package playground is the Canopy Plugin Playground: a minimal plugin process
// that connects to a Canopy FSM host and serves a hello-world contract.
//
// Example usage:
//
//	cfg := playground.DefaultConfig()
//	cfg.ChainID = 1
//	p, err := playground.StartPlugin(ctx, cfg, log.NewNoopLogger())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
package playground

import (
	"context"

	"github.com/heptiolabs/healthcheck"

	"github.com/canopy-network/plugin-playground/extensions/healthserver"
	"github.com/canopy-network/plugin-playground/extensions/resourcegate"
	"github.com/canopy-network/plugin-playground/extensions/statusfile"
	"github.com/canopy-network/plugin-playground/internal/cliconfig"
	"github.com/canopy-network/plugin-playground/internal/metrics"
	"github.com/canopy-network/plugin-playground/pkg/contract"
	"github.com/canopy-network/plugin-playground/pkg/log"
	"github.com/canopy-network/plugin-playground/pkg/plugin"
)

// Version is the playground release printed in the banner.
const Version = "v0.1.0"

// Config holds the plugin configuration.
// Use DefaultConfig() to get a Config with default values.
type Config = cliconfig.Config

// DefaultConfig returns the default configuration: chain 1, data directory
// /tmp/plugin/. It reads no files or environment.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// NewPlugin creates a plugin handle serving the playground contract, with
// metrics and the extensions enabled by cfg. Extra options are applied last.
func NewPlugin(cfg Config, logger log.Logger, opts ...plugin.Option) (*plugin.Plugin, error) {
	base := []plugin.Option{
		plugin.WithLogger(logger),
		plugin.WithContract(contract.Playground()),
		plugin.WithMetrics(metrics.New()),
	}
	if cfg.StatusFile {
		base = append(base, statusfile.WithStatusFile())
	}
	if cfg.HealthAddr != "" {
		gate := resourcegate.New(resourcegate.DefaultConfig())
		hc := healthserver.DefaultConfig(cfg.HealthAddr)
		hc.ReadinessChecks = map[string]healthcheck.Check{"resources": gate.Check}
		base = append(base,
			plugin.WithExtension(gate),
			healthserver.WithHealthServerConfig(hc),
		)
	}
	return plugin.New(cfg, append(base, opts...)...)
}

// StartPlugin creates and starts a plugin handle. On a start failure the
// handle is released before the error is returned.
func StartPlugin(ctx context.Context, cfg Config, logger log.Logger, opts ...plugin.Option) (*plugin.Plugin, error) {
	p, err := NewPlugin(cfg, logger, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}
