package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveProfile(t *testing.T) {
	base := DefaultConfig()
	base.Search.DesktopCount = 30
	base.Search.MobileCount = 20
	base.Search.DevCount = 3
	base.Search.UserCount = 10
	base.Scheduler.Enabled = true
	base.Browser.Headless = false

	tests := []struct {
		name string
		opts ProfileOptions
		want ExecutionProfile
	}{
		{
			name: "default mode keeps configured counts",
			opts: ProfileOptions{},
			want: ExecutionProfile{DesktopCount: 30, MobileCount: 20, SchedulerEnabled: true},
		},
		{
			name: "dev mode reduces counts and disables scheduler",
			opts: ProfileOptions{Dev: true},
			want: ExecutionProfile{DesktopCount: 3, MobileCount: 3, SchedulerEnabled: false},
		},
		{
			name: "user mode reduces counts and disables scheduler",
			opts: ProfileOptions{User: true},
			want: ExecutionProfile{DesktopCount: 10, MobileCount: 10, SchedulerEnabled: false},
		},
		{
			name: "desktop only zeroes mobile",
			opts: ProfileOptions{DesktopOnly: true},
			want: ExecutionProfile{DesktopCount: 30, MobileCount: 0, SchedulerEnabled: true},
		},
		{
			name: "mobile only zeroes desktop",
			opts: ProfileOptions{MobileOnly: true},
			want: ExecutionProfile{DesktopCount: 0, MobileCount: 20, SchedulerEnabled: true},
		},
		{
			name: "headless flag forces headless",
			opts: ProfileOptions{Headless: true},
			want: ExecutionProfile{DesktopCount: 30, MobileCount: 20, SchedulerEnabled: true, Headless: true},
		},
		{
			name: "once disables scheduler",
			opts: ProfileOptions{Once: true},
			want: ExecutionProfile{DesktopCount: 30, MobileCount: 20, SchedulerEnabled: false, RunOnce: true},
		},
		{
			name: "dev with desktop only",
			opts: ProfileOptions{Dev: true, DesktopOnly: true},
			want: ExecutionProfile{DesktopCount: 3, MobileCount: 0, SchedulerEnabled: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveProfile(base, tt.opts)
			assert.Equal(t, tt.want, got)
		})
	}
}
