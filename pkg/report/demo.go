package report

import (
	"time"

	"github.com/capy-discord/capy/pkg/analytics"
)

// DemoUptime is how long the demo session has been running.
const DemoUptime = 2*time.Hour + 15*time.Minute + 42*time.Second

// DemoSnapshot returns a snapshot of a short, realistic bot session that
// booted DemoUptime before now.
func DemoSnapshot(now time.Time) analytics.Snapshot {
	agg := analytics.NewAggregatorAt(now.Add(-DemoUptime))

	guild := func(id uint64) *uint64 { return &id }

	interactions := []analytics.Interaction{
		{Type: "slash_command", CommandName: "ping", UserID: 101, GuildID: guild(9000)},
		{Type: "slash_command", CommandName: "ping", UserID: 102, GuildID: guild(9000)},
		{Type: "slash_command", CommandName: "ping", UserID: 101, GuildID: guild(9000)},
		{Type: "slash_command", CommandName: "help", UserID: 103, GuildID: guild(9000)},
		{Type: "slash_command", CommandName: "help", UserID: 101, GuildID: guild(9001)},
		{Type: "slash_command", CommandName: "feedback", UserID: 104, GuildID: guild(9000)},
		{Type: "slash_command", CommandName: "stats", UserID: 101, GuildID: guild(9000)},
		{Type: "button", CommandName: "confirm_btn", UserID: 102, GuildID: guild(9000)},
		{Type: "button", CommandName: "cancel_btn", UserID: 103, GuildID: guild(9000)},
		{Type: "modal", CommandName: "feedback_form", UserID: 104, GuildID: guild(9000)},
		{Type: "slash_command", CommandName: "ping", UserID: 105},
	}
	for _, rec := range interactions {
		agg.RecordInteraction(rec)
	}

	completions := []struct {
		command   string
		status    string
		ms        float64
		errorType string
	}{
		{"ping", analytics.StatusSuccess, 12.3, ""},
		{"ping", analytics.StatusSuccess, 8.7, ""},
		{"ping", analytics.StatusSuccess, 15.1, ""},
		{"ping", analytics.StatusSuccess, 9.4, ""},
		{"help", analytics.StatusSuccess, 22.0, ""},
		{"help", analytics.StatusUserError, 5.2, "UserFriendlyError"},
		{"feedback", analytics.StatusSuccess, 45.6, ""},
		{"stats", analytics.StatusSuccess, 3.1, ""},
		{"ping", analytics.StatusInternalError, 2.0, "errorString"},
		{"feedback", analytics.StatusInternalError, 100.5, "NumError"},
	}
	for _, c := range completions {
		ms := c.ms
		agg.RecordCompletion(analytics.Completion{
			CommandName: c.command,
			Status:      c.status,
			DurationMS:  &ms,
			ErrorType:   c.errorType,
		})
	}

	return agg.Snapshot()
}
