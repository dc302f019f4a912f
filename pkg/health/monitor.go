package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pollenlabs/gleaner/pkg/config"
	"github.com/pollenlabs/gleaner/pkg/logging"
)

// stopTimeout bounds how long Stop waits for the sampling loop to exit.
const stopTimeout = 5 * time.Second

// Monitor runs the probe set on an interval and keeps the latest samples.
type Monitor struct {
	cfg    config.HealthCheckConfig
	probes []Probe
	logger *logging.Logger

	mu      sync.RWMutex
	latest  []Sample
	overall Status

	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewMonitor creates a health monitor over the given probes.
func NewMonitor(cfg config.HealthCheckConfig, probes ...Probe) *Monitor {
	logger, _ := logging.NewLogger("health")
	return &Monitor{
		cfg:     cfg,
		probes:  probes,
		logger:  logger,
		overall: StatusUnknown,
	}
}

// Start launches the sampling loop. It samples once immediately, then on
// the configured interval. Starting a disabled or already-running monitor
// is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Enabled || m.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go m.loop(loopCtx)
	m.logger.Infof("Health monitor started: %d probes every %s", len(m.probes), m.cfg.Interval)
}

// Stop cancels the sampling loop and waits for it to exit, bounded by
// stopTimeout. A probe stuck past the bound is abandoned with an error.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	select {
	case <-done:
		m.logger.Infof("Health monitor stopped")
		return nil
	case <-time.After(stopTimeout):
		return fmt.Errorf("health monitor did not stop within %s", stopTimeout)
	}
}

// Overall returns the aggregated status from the most recent sample pass.
func (m *Monitor) Overall() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overall
}

// Latest returns a copy of the most recent samples.
func (m *Monitor) Latest() []Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Sample, len(m.latest))
	copy(out, m.latest)
	return out
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	m.sample(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

// sample runs every probe once and publishes the results.
func (m *Monitor) sample(ctx context.Context) {
	samples := make([]Sample, 0, len(m.probes))
	for _, probe := range m.probes {
		if ctx.Err() != nil {
			return
		}
		samples = append(samples, probe.Check(ctx))
	}

	overall := Aggregate(samples)

	m.mu.Lock()
	previous := m.overall
	m.latest = samples
	m.overall = overall
	m.mu.Unlock()

	if overall != previous {
		m.logger.Infof("Health changed: %s -> %s", previous, overall)
	}
	for _, s := range samples {
		if s.Status == StatusWarning || s.Status == StatusError {
			m.logger.Warnf("Probe %s: %s (%s)", s.Subsystem, s.Status, s.Message)
		}
	}
}
