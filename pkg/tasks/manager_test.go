package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollenlabs/gleaner/pkg/browser"
)

type fakeDriver struct {
	evalResult  interface{}
	evalErr     error
	navErr      map[string]error
	waitErr     map[string]error
	navigated   []string
	clicked     []string
	clickErr    error
	globalNavErr error
}

func (d *fakeDriver) Navigate(url string) error {
	d.navigated = append(d.navigated, url)
	if d.globalNavErr != nil {
		return d.globalNavErr
	}
	if err, ok := d.navErr[url]; ok {
		return err
	}
	return nil
}

func (d *fakeDriver) Evaluate(string) (interface{}, error) { return d.evalResult, d.evalErr }

func (d *fakeDriver) Click(selector string) error {
	d.clicked = append(d.clicked, selector)
	return d.clickErr
}

func (d *fakeDriver) Fill(string, string) error { return nil }

func (d *fakeDriver) WaitForSelector(selector string, _ time.Duration) error {
	if err, ok := d.waitErr[selector]; ok {
		return err
	}
	return nil
}

func (d *fakeDriver) Title() (string, error)             { return "", nil }
func (d *fakeDriver) Content() (string, error)           { return "", nil }
func (d *fakeDriver) Cookies() ([]browser.Cookie, error) { return nil, nil }
func (d *fakeDriver) Screenshot() ([]byte, error)        { return nil, nil }
func (d *fakeDriver) URL() string                        { return "" }
func (d *fakeDriver) Reload() error                      { return nil }

func fastManager() *Manager {
	return NewManager(ManagerOptions{
		URLDwell:  time.Millisecond,
		StepDelay: time.Millisecond,
	})
}

func TestTypeFromPromotion(t *testing.T) {
	tests := []struct {
		promo string
		want  Type
	}{
		{"quiz", TypeQuiz},
		{"DailyQuiz", TypeQuiz},
		{"poll", TypePoll},
		{"urlreward", TypeURLReward},
		{"urlrewardattribute", TypeURLReward},
		{"welcometour", TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.promo, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeFromPromotion(tt.promo))
		})
	}
}

func TestDiscoverParsesTasks(t *testing.T) {
	raw := []rawTask{
		{ID: "task-0", Title: "Daily poll", Points: 10, DestinationURL: "https://x/poll", PromotionType: "poll"},
		{ID: "task-1", Title: "Read and earn", Points: 5, Completed: true, DestinationURL: "https://x/read", PromotionType: "urlreward"},
		{ID: "task-2", Title: "  ", Points: 5, DestinationURL: "https://x/blank", PromotionType: "urlreward"},
	}
	payload, err := json.Marshal(raw)
	require.NoError(t, err)

	driver := &fakeDriver{evalResult: string(payload)}
	m := fastManager()

	tasks, err := m.Discover(driver)
	require.NoError(t, err)

	// Blank-titled entries are dropped
	require.Len(t, tasks, 2)
	assert.Equal(t, TypePoll, tasks[0].Type)
	assert.Equal(t, "Daily poll", tasks[0].Title)
	assert.True(t, tasks[1].Completed)
	assert.Contains(t, driver.navigated, earnURL)
}

func TestRunExecutesAndCounts(t *testing.T) {
	driver := &fakeDriver{}
	m := fastManager()

	taskList := []Task{
		{ID: "a", Type: TypeURLReward, Title: "Visit", Points: 5, DestinationURL: "https://x/visit"},
		{ID: "b", Type: TypePoll, Title: "Poll", Points: 10, DestinationURL: "https://x/poll"},
		{ID: "c", Type: TypeURLReward, Title: "Done already", Points: 5, Completed: true, DestinationURL: "https://x/done"},
		{ID: "d", Type: TypeUnknown, Title: "Mystery", Points: 50},
	}

	report, err := m.Run(context.Background(), driver, taskList)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 15, report.PointsEarned)
	assert.Contains(t, driver.clicked, pollOptionSelector)
}

func TestRunFailingTaskContinues(t *testing.T) {
	driver := &fakeDriver{
		navErr: map[string]error{
			"https://x/broken": fmt.Errorf("navigation failed"),
		},
	}
	m := fastManager()

	taskList := []Task{
		{ID: "a", Type: TypeURLReward, Title: "Broken", Points: 5, DestinationURL: "https://x/broken"},
		{ID: "b", Type: TypeURLReward, Title: "Works", Points: 5, DestinationURL: "https://x/works"},
	}

	report, err := m.Run(context.Background(), driver, taskList)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 5, report.PointsEarned)
}

func TestRunSkipsBadURLSchemes(t *testing.T) {
	driver := &fakeDriver{}
	m := fastManager()

	taskList := []Task{
		{ID: "a", Type: TypeURLReward, Title: "Edge link", Points: 5, DestinationURL: "microsoft-edge://x"},
	}

	report, err := m.Run(context.Background(), driver, taskList)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, driver.navigated)
}

func TestRunQuizClicksThroughQuestions(t *testing.T) {
	driver := &fakeDriver{}
	m := fastManager()

	taskList := []Task{
		{ID: "q", Type: TypeQuiz, Title: "Quiz", Points: 30, DestinationURL: "https://x/quiz"},
	}

	report, err := m.Run(context.Background(), driver, taskList)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)

	// Start button plus bounded question clicks
	assert.Contains(t, driver.clicked, quizStartSelector)
	optionClicks := 0
	for _, c := range driver.clicked {
		if c == quizOptionSelector {
			optionClicks++
		}
	}
	assert.Equal(t, 10, optionClicks)
}

func TestRunCancellation(t *testing.T) {
	driver := &fakeDriver{}
	m := NewManager(ManagerOptions{URLDwell: 10 * time.Second, StepDelay: time.Millisecond})

	taskList := []Task{
		{ID: "a", Type: TypeURLReward, Title: "Slow", Points: 5, DestinationURL: "https://x/slow"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := m.Run(ctx, driver, taskList)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDiscoverEvaluateFailure(t *testing.T) {
	driver := &fakeDriver{evalErr: fmt.Errorf("script blew up")}
	m := fastManager()

	_, err := m.Discover(driver)
	require.Error(t, err)
}
