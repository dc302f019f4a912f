package tasks

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pollenlabs/gleaner/pkg/browser"
	"github.com/pollenlabs/gleaner/pkg/types"
)

const earnURL = "https://rewards.bing.com/earn"

// discoverScript walks the earn page's task cards and returns one record
// per actionable link. Completion is read from the point circle's classes.
const discoverScript = `
(() => {
	const tasks = [];
	const seen = new Set();

	const shouldSkip = (href) => {
		const h = href.toLowerCase();
		if (h.startsWith('microsoft-edge://')) return true;
		if (h.includes('xbox.com')) return true;
		if (h === '#' || h.endsWith('#')) return true;
		if (h.includes('referandearn') || h.includes('/redeem')) return true;
		return false;
	};

	const extractPoints = (el) => {
		const text = el.innerText || '';
		const match = text.match(/\+(\d+)/) || text.match(/(\d+)\s*(?:points?|pts?)/i);
		return match ? parseInt(match[1]) : 0;
	};

	document.querySelectorAll('a[href]').forEach((el, idx) => {
		const href = el.href || '';
		if (!href || shouldSkip(href) || seen.has(href)) return;

		const title = (el.innerText || '').trim().split('\n')[0];
		if (!title) return;
		seen.add(href);

		const classes = el.innerHTML;
		const completed = classes.includes('bg-statusSuccessBg3');
		const promo = el.getAttribute('data-task-type') || 'urlreward';

		tasks.push({
			id: 'task-' + idx,
			title: title,
			points: extractPoints(el),
			completed: completed,
			destination_url: href,
			promotion_type: promo
		});
	});

	return JSON.stringify(tasks);
})()
`

// rawTask is the wire shape produced by discoverScript.
type rawTask struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Points         int    `json:"points"`
	Completed      bool   `json:"completed"`
	DestinationURL string `json:"destination_url"`
	PromotionType  string `json:"promotion_type"`
}

// Discover navigates to the earn page and parses the available tasks.
func (m *Manager) Discover(driver browser.Driver) ([]Task, error) {
	if err := driver.Navigate(earnURL); err != nil {
		return nil, &types.InfrastructureError{
			Component: "browser",
			Err:       fmt.Errorf("cannot reach earn page: %w", err),
		}
	}

	result, err := driver.Evaluate(discoverScript)
	if err != nil {
		return nil, &types.InfrastructureError{
			Component: "browser",
			Err:       fmt.Errorf("task discovery script failed: %w", err),
		}
	}

	payload, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("task discovery returned %T, expected string", result)
	}

	var raw []rawTask
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode discovered tasks: %w", err)
	}

	tasks := make([]Task, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		tasks = append(tasks, Task{
			ID:             r.ID,
			Type:           TypeFromPromotion(r.PromotionType),
			Title:          strings.TrimSpace(r.Title),
			Points:         r.Points,
			Completed:      r.Completed,
			DestinationURL: r.DestinationURL,
		})
	}

	m.logger.Infof("Discovered %d tasks on earn page", len(tasks))
	return tasks, nil
}
