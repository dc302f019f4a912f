// Package notify carries the per-run completion summary to interested
// sinks. Delivery transports live outside this module; the log dispatcher
// is the built-in sink.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/pollenlabs/gleaner/pkg/logging"
)

// Summary is the structured completion report emitted once per run.
type Summary struct {
	PointsGained     int           `json:"points_gained"`
	DesktopCompleted int           `json:"desktop_completed"`
	MobileCompleted  int           `json:"mobile_completed"`
	Errors           int           `json:"errors"`
	Duration         time.Duration `json:"duration"`
}

func (s Summary) String() string {
	return fmt.Sprintf("points=%d desktop=%d mobile=%d errors=%d duration=%s",
		s.PointsGained, s.DesktopCompleted, s.MobileCompleted, s.Errors,
		s.Duration.Round(time.Second))
}

// Notifier receives the completion summary.
type Notifier interface {
	Notify(ctx context.Context, summary Summary) error
}

// LogNotifier writes summaries to the component log.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates the built-in log sink.
func NewLogNotifier() *LogNotifier {
	logger, _ := logging.NewLogger("notify")
	return &LogNotifier{logger: logger}
}

// Notify logs the summary.
func (n *LogNotifier) Notify(_ context.Context, summary Summary) error {
	n.logger.Infof("Run complete: %s", summary)
	return nil
}

// Fanout dispatches one summary to several sinks, collecting errors rather
// than stopping at the first failure.
type Fanout []Notifier

// Notify sends the summary to every sink.
func (f Fanout) Notify(ctx context.Context, summary Summary) error {
	var firstErr error
	for _, n := range f {
		if err := n.Notify(ctx, summary); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
