package analytics

import "time"

// Completion statuses.
const (
	StatusSuccess       = "success"
	StatusUserError     = "user_error"
	StatusInternalError = "internal_error"
)

// Interaction is the aggregated view of an interaction record.
type Interaction struct {
	CorrelationID string
	Type          string
	UserID        uint64
	Username      string
	// CommandName is empty when the interaction names no command.
	CommandName string
	// GuildID is nil for direct messages.
	GuildID   *uint64
	GuildName string
	ChannelID uint64
	Timestamp time.Time
	Options   map[string]any
}

// Completion is the aggregated view of a completion or failure record.
type Completion struct {
	CorrelationID string
	CommandName   string
	Status        string
	// DurationMS is nil when no duration was measured.
	DurationMS *float64
	// ErrorType is empty for successful completions.
	ErrorType string
}

// Failed reports whether the completion is a failure.
func (c Completion) Failed() bool {
	return c.Status != StatusSuccess
}
