// Package resourcegate samples host CPU and process memory so the plugin can
// report itself unready while the machine running the node is saturated.
package resourcegate

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/canopy-network/plugin-playground/pkg/log"
	"github.com/canopy-network/plugin-playground/pkg/plugin"
)

// Config holds configuration options for the resource gate.
type Config struct {
	// CPUThreshold is the host CPU usage fraction (0.0-1.0) above which the
	// gate closes.
	// Default: 0.85
	CPUThreshold float64

	// MaxRSSBytes closes the gate when the plugin's resident memory exceeds it.
	// Zero disables the memory check.
	MaxRSSBytes uint64

	// Interval is the sampling period.
	// Default: 5 seconds
	Interval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CPUThreshold: 0.85,
		Interval:     5 * time.Second,
	}
}

// Sample is one measurement.
type Sample struct {
	CPU float64 // host CPU usage fraction
	RSS uint64  // plugin resident memory in bytes
	At  time.Time
}

// Sampler takes a measurement.
type Sampler func(ctx context.Context) (Sample, error)

// Gate periodically samples resources and answers whether they allow work.
type Gate struct {
	cfg     Config
	sampler Sampler

	mu     sync.RWMutex
	last   Sample
	err    error
	logger log.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a resource gate with the given configuration.
func New(cfg Config) *Gate {
	if cfg.CPUThreshold <= 0 {
		cfg.CPUThreshold = 0.85
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	return &Gate{cfg: cfg, sampler: sampleProcess(int32(os.Getpid()))}
}

// Name returns the extension identifier.
func (g *Gate) Name() string {
	return "resourcegate"
}

// Initialize takes a first sample and starts the sampling loop.
func (g *Gate) Initialize(ctx context.Context, cfg plugin.ExtensionConfig) error {
	g.mu.Lock()
	g.logger = cfg.Logger
	g.mu.Unlock()

	g.sample(ctx)

	runCtx, cancel := context.WithCancel(context.Background())
	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()

	g.wg.Add(1)
	go g.loop(runCtx)

	cfg.Logger.Info("resource gate enabled",
		log.Any("cpu_threshold", g.cfg.CPUThreshold),
		log.Uint64("max_rss_bytes", g.cfg.MaxRSSBytes),
		log.Duration("interval", g.cfg.Interval))
	return nil
}

// Shutdown stops sampling.
func (g *Gate) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	g.wg.Wait()
	return nil
}

func (g *Gate) loop(ctx context.Context) {
	defer g.wg.Done()

	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sample(ctx)
		}
	}
}

func (g *Gate) sample(ctx context.Context) {
	s, err := g.sampler(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
	if err != nil {
		if g.logger != nil {
			g.logger.Debug("resource sample failed", log.Err(err))
		}
		return
	}
	g.last = s
}

// Check returns an error while resources are above their thresholds.
// A failed sample does not close the gate.
func (g *Gate) Check() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.last.CPU > g.cfg.CPUThreshold {
		return fmt.Errorf("cpu usage %.2f above %.2f", g.last.CPU, g.cfg.CPUThreshold)
	}
	if g.cfg.MaxRSSBytes > 0 && g.last.RSS > g.cfg.MaxRSSBytes {
		return fmt.Errorf("resident memory %d above %d bytes", g.last.RSS, g.cfg.MaxRSSBytes)
	}
	return nil
}

func sampleProcess(pid int32) Sampler {
	return func(ctx context.Context) (Sample, error) {
		percents, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil {
			return Sample{}, fmt.Errorf("cpu: %w", err)
		}
		s := Sample{At: time.Now()}
		if len(percents) > 0 {
			s.CPU = percents[0] / 100
		}

		p, err := process.NewProcessWithContext(ctx, pid)
		if err != nil {
			return Sample{}, fmt.Errorf("process %d: %w", pid, err)
		}
		mem, err := p.MemoryInfoWithContext(ctx)
		if err != nil {
			return Sample{}, fmt.Errorf("memory: %w", err)
		}
		s.RSS = mem.RSS
		return s, nil
	}
}

// Ensure Gate implements plugin.Extension.
var _ plugin.Extension = (*Gate)(nil)
