// Package health runs periodic liveness probes over the subsystems of a run:
// host resources, network reachability, the browser processes, and search
// success rate. Probes are advisory; nothing here stops a run.
package health

import "time"

// Status is the health level of a subsystem or of the whole system.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusUnknown Status = "unknown"
)

// severity orders statuses for worst-of aggregation. Unknown is excluded
// from aggregation rather than ranked.
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusWarning:
		return 1
	case StatusError:
		return 2
	default:
		return -1
	}
}

// Sample is one probe's result.
type Sample struct {
	Subsystem string
	Status    Status
	Message   string
	Metrics   map[string]float64
	CheckedAt time.Time
}

// Aggregate reduces probe samples to a single status: the worst known
// status wins, unknown samples are ignored, and all-unknown stays unknown.
func Aggregate(samples []Sample) Status {
	overall := StatusUnknown
	for _, sample := range samples {
		if sample.Status == StatusUnknown {
			continue
		}
		if overall == StatusUnknown || sample.Status.severity() > overall.severity() {
			overall = sample.Status
		}
	}
	return overall
}
