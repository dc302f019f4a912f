package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pollenlabs/gleaner/pkg/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// staticProbe returns a fixed sample.
type staticProbe struct {
	name   string
	status Status
}

func (p *staticProbe) Name() string { return p.name }

func (p *staticProbe) Check(context.Context) Sample {
	return Sample{Subsystem: p.name, Status: p.status, CheckedAt: time.Now()}
}

// slowProbe blocks until the check context is cancelled.
type slowProbe struct{}

func (p *slowProbe) Name() string { return "slow" }

func (p *slowProbe) Check(ctx context.Context) Sample {
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
	}
	return Sample{Subsystem: p.Name(), Status: StatusUnknown, CheckedAt: time.Now()}
}

func enabledConfig() config.HealthCheckConfig {
	return config.HealthCheckConfig{Enabled: true, Interval: 10 * time.Millisecond}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"warning wins over healthy", []Status{StatusHealthy, StatusWarning}, StatusWarning},
		{"error wins over warning", []Status{StatusWarning, StatusError, StatusHealthy}, StatusError},
		{"unknown excluded", []Status{StatusUnknown, StatusHealthy}, StatusHealthy},
		{"all unknown stays unknown", []Status{StatusUnknown, StatusUnknown}, StatusUnknown},
		{"empty is unknown", nil, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := make([]Sample, 0, len(tt.statuses))
			for _, s := range tt.statuses {
				samples = append(samples, Sample{Status: s})
			}
			assert.Equal(t, tt.want, Aggregate(samples))
		})
	}
}

func TestSearchRateProbe(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		successes int
		want      Status
	}{
		{"too few attempts", 3, 3, StatusUnknown},
		{"high rate", 10, 9, StatusHealthy},
		{"mid rate", 10, 6, StatusWarning},
		{"low rate", 10, 3, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := NewSearchRateProbe(func() (int, int) { return tt.attempts, tt.successes })
			sample := probe.Check(context.Background())
			assert.Equal(t, tt.want, sample.Status)
		})
	}
}

type fakeSessions struct {
	total, alive int
}

func (f *fakeSessions) SessionsAlive() (int, int) { return f.total, f.alive }

func TestBrowserProbe(t *testing.T) {
	tests := []struct {
		name         string
		total, alive int
		want         Status
	}{
		{"no sessions", 0, 0, StatusUnknown},
		{"all alive", 2, 2, StatusHealthy},
		{"one lost", 2, 1, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := NewBrowserProbe(&fakeSessions{total: tt.total, alive: tt.alive})
			sample := probe.Check(context.Background())
			assert.Equal(t, tt.want, sample.Status)
		})
	}
}

func TestNetworkProbe(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	t.Run("all reachable", func(t *testing.T) {
		probe := NewNetworkProbe([]string{up.URL}, up.Client())
		assert.Equal(t, StatusHealthy, probe.Check(context.Background()).Status)
	})

	t.Run("partially reachable", func(t *testing.T) {
		probe := NewNetworkProbe([]string{up.URL, down.URL}, up.Client())
		assert.Equal(t, StatusWarning, probe.Check(context.Background()).Status)
	})

	t.Run("none reachable", func(t *testing.T) {
		probe := NewNetworkProbe([]string{down.URL}, down.Client())
		assert.Equal(t, StatusError, probe.Check(context.Background()).Status)
	})

	t.Run("no urls configured", func(t *testing.T) {
		probe := NewNetworkProbe(nil, nil)
		assert.Equal(t, StatusUnknown, probe.Check(context.Background()).Status)
	})
}

func TestMonitorSamplesAndAggregates(t *testing.T) {
	m := NewMonitor(enabledConfig(),
		&staticProbe{name: "a", status: StatusHealthy},
		&staticProbe{name: "b", status: StatusWarning},
	)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return len(m.Latest()) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, StatusWarning, m.Overall())
}

func TestMonitorStopIsBounded(t *testing.T) {
	m := NewMonitor(enabledConfig(), &slowProbe{})
	m.Start(context.Background())

	// Let the loop enter the slow probe
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	require.NoError(t, m.Stop())
	assert.Less(t, time.Since(start), time.Second)
}

func TestMonitorDisabledIsNoop(t *testing.T) {
	m := NewMonitor(config.HealthCheckConfig{Enabled: false, Interval: time.Millisecond})
	m.Start(context.Background())
	assert.Equal(t, StatusUnknown, m.Overall())
	require.NoError(t, m.Stop())
}

func TestMonitorStopTwice(t *testing.T) {
	m := NewMonitor(enabledConfig(), &staticProbe{name: "a", status: StatusHealthy})
	m.Start(context.Background())
	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())
}
