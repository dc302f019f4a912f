package tasks

import (
	"context"
	"time"

	"github.com/pollenlabs/gleaner/pkg/browser"
	"github.com/pollenlabs/gleaner/pkg/logging"
	"github.com/pollenlabs/gleaner/pkg/types"
)

// Manager discovers and runs daily tasks sequentially over one driver.
type Manager struct {
	handlers []Handler
	logger   *logging.Logger
}

// ManagerOptions tune task execution pacing.
type ManagerOptions struct {
	// URLDwell is how long a url_reward page is kept open.
	URLDwell time.Duration

	// StepDelay paces quiz/poll interactions.
	StepDelay time.Duration
}

// NewManager creates a task manager with the standard handler set.
func NewManager(opts ManagerOptions) *Manager {
	if opts.URLDwell == 0 {
		opts.URLDwell = 8 * time.Second
	}
	if opts.StepDelay == 0 {
		opts.StepDelay = 3 * time.Second
	}

	logger, _ := logging.NewLogger("tasks")
	return &Manager{
		handlers: []Handler{
			&urlRewardHandler{dwell: opts.URLDwell},
			&quizHandler{stepDelay: opts.StepDelay, maxQuestions: 10},
			&pollHandler{stepDelay: opts.StepDelay},
		},
		logger: logger,
	}
}

// Run executes the given tasks one at a time. Already-completed tasks and
// tasks with no handler are skipped. A failing task increments the failure
// count and execution continues; only infrastructure failures abort.
func (m *Manager) Run(ctx context.Context, driver browser.Driver, taskList []Task) (Report, error) {
	start := time.Now()
	report := Report{Total: len(taskList)}

	for _, task := range taskList {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		if task.Completed {
			m.logger.Debugf("Skipping completed task: %s", task.Title)
			report.Skipped++
			continue
		}

		handler := m.handlerFor(task)
		if handler == nil {
			m.logger.Debugf("No handler for task %s (type %s), skipping", task.Title, task.Type)
			report.Skipped++
			continue
		}

		m.logger.Infof("Executing task: %s (%d pts, %s)", task.Title, task.Points, task.Type)
		if err := handler.Execute(ctx, driver, task); err != nil {
			if ctx.Err() != nil {
				report.Duration = time.Since(start)
				return report, ctx.Err()
			}
			if types.IsInfrastructure(err) {
				report.Duration = time.Since(start)
				return report, err
			}
			m.logger.Warnf("Task %q failed: %v", task.Title, err)
			report.Failed++
			continue
		}

		report.Completed++
		report.PointsEarned += task.Points
	}

	report.Duration = time.Since(start)
	m.logger.Infof("Task run done: %d/%d completed, %d failed, %d skipped, %d pts",
		report.Completed, report.Total, report.Failed, report.Skipped, report.PointsEarned)
	return report, nil
}

func (m *Manager) handlerFor(task Task) Handler {
	for _, h := range m.handlers {
		if h.CanHandle(task) {
			return h
		}
	}
	return nil
}
