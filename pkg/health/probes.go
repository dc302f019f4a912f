package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Probe checks one subsystem.
type Probe interface {
	Name() string
	Check(ctx context.Context) Sample
}

// Threshold defaults for the resource probe, in percent.
const (
	cpuWarnPercent = 85.0
	cpuErrPercent  = 95.0
	memWarnPercent = 85.0
	memErrPercent  = 95.0
)

// resourceProbe samples host CPU and memory utilisation.
type resourceProbe struct{}

// NewResourceProbe creates the host resource probe.
func NewResourceProbe() Probe {
	return &resourceProbe{}
}

func (p *resourceProbe) Name() string { return "resources" }

func (p *resourceProbe) Check(ctx context.Context) Sample {
	sample := Sample{
		Subsystem: p.Name(),
		Status:    StatusHealthy,
		Metrics:   map[string]float64{},
		CheckedAt: time.Now(),
	}

	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil || len(cpuPercents) == 0 {
		sample.Status = StatusUnknown
		sample.Message = fmt.Sprintf("cpu sampling failed: %v", err)
		return sample
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		sample.Status = StatusUnknown
		sample.Message = fmt.Sprintf("memory sampling failed: %v", err)
		return sample
	}

	cpuPct := cpuPercents[0]
	sample.Metrics["cpu_percent"] = cpuPct
	sample.Metrics["mem_percent"] = vm.UsedPercent

	switch {
	case cpuPct > cpuErrPercent || vm.UsedPercent > memErrPercent:
		sample.Status = StatusError
		sample.Message = fmt.Sprintf("host saturated: cpu %.0f%%, mem %.0f%%", cpuPct, vm.UsedPercent)
	case cpuPct > cpuWarnPercent || vm.UsedPercent > memWarnPercent:
		sample.Status = StatusWarning
		sample.Message = fmt.Sprintf("host under pressure: cpu %.0f%%, mem %.0f%%", cpuPct, vm.UsedPercent)
	}

	return sample
}

// networkProbe checks reachability of the configured probe URLs.
type networkProbe struct {
	urls   []string
	client *http.Client
}

// NewNetworkProbe creates a reachability probe over the given URLs. A nil
// client gets a default with a short per-request timeout.
func NewNetworkProbe(urls []string, client *http.Client) Probe {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &networkProbe{urls: urls, client: client}
}

func (p *networkProbe) Name() string { return "network" }

func (p *networkProbe) Check(ctx context.Context) Sample {
	sample := Sample{
		Subsystem: p.Name(),
		Metrics:   map[string]float64{},
		CheckedAt: time.Now(),
	}
	if len(p.urls) == 0 {
		sample.Status = StatusUnknown
		sample.Message = "no probe URLs configured"
		return sample
	}

	reachable := 0
	for _, target := range p.urls {
		if p.reachable(ctx, target) {
			reachable++
		}
	}
	sample.Metrics["reachable"] = float64(reachable)
	sample.Metrics["total"] = float64(len(p.urls))

	switch {
	case reachable == len(p.urls):
		sample.Status = StatusHealthy
	case reachable > 0:
		sample.Status = StatusWarning
		sample.Message = fmt.Sprintf("%d/%d probe URLs reachable", reachable, len(p.urls))
	default:
		sample.Status = StatusError
		sample.Message = "no probe URLs reachable"
	}
	return sample
}

func (p *networkProbe) reachable(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// SessionCounter reports browser session liveness. *browser.Manager
// satisfies it.
type SessionCounter interface {
	SessionsAlive() (total, alive int)
}

// browserProbe checks that every open browser session still has a
// connected process behind it.
type browserProbe struct {
	sessions SessionCounter
}

// NewBrowserProbe creates the browser liveness probe.
func NewBrowserProbe(sessions SessionCounter) Probe {
	return &browserProbe{sessions: sessions}
}

func (p *browserProbe) Name() string { return "browser" }

func (p *browserProbe) Check(_ context.Context) Sample {
	sample := Sample{
		Subsystem: p.Name(),
		Metrics:   map[string]float64{},
		CheckedAt: time.Now(),
	}

	total, alive := p.sessions.SessionsAlive()
	sample.Metrics["sessions"] = float64(total)
	sample.Metrics["alive"] = float64(alive)

	switch {
	case total == 0:
		sample.Status = StatusUnknown
		sample.Message = "no active sessions"
	case alive == total:
		sample.Status = StatusHealthy
	default:
		sample.Status = StatusError
		sample.Message = fmt.Sprintf("%d/%d sessions lost their browser process", total-alive, total)
	}
	return sample
}

// Search success-rate thresholds and the minimum sample size below which
// the probe reports unknown.
const (
	searchRateMinAttempts = 5
	searchRateWarnBelow   = 0.8
	searchRateErrBelow    = 0.5
)

// searchRateProbe derives a verdict from the run's search success rate.
type searchRateProbe struct {
	stats func() (attempts, successes int)
}

// NewSearchRateProbe creates the search success-rate probe. The stats
// function typically reads the coordinator's progress tracker.
func NewSearchRateProbe(stats func() (attempts, successes int)) Probe {
	return &searchRateProbe{stats: stats}
}

func (p *searchRateProbe) Name() string { return "search" }

func (p *searchRateProbe) Check(_ context.Context) Sample {
	sample := Sample{
		Subsystem: p.Name(),
		Metrics:   map[string]float64{},
		CheckedAt: time.Now(),
	}

	attempts, successes := p.stats()
	sample.Metrics["attempts"] = float64(attempts)
	sample.Metrics["successes"] = float64(successes)

	if attempts < searchRateMinAttempts {
		sample.Status = StatusUnknown
		sample.Message = fmt.Sprintf("only %d attempts so far", attempts)
		return sample
	}

	rate := float64(successes) / float64(attempts)
	sample.Metrics["rate"] = rate

	switch {
	case rate < searchRateErrBelow:
		sample.Status = StatusError
		sample.Message = fmt.Sprintf("success rate %.0f%%", rate*100)
	case rate < searchRateWarnBelow:
		sample.Status = StatusWarning
		sample.Message = fmt.Sprintf("success rate %.0f%%", rate*100)
	default:
		sample.Status = StatusHealthy
	}
	return sample
}
