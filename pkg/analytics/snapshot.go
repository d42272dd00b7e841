package analytics

import (
	"sort"
	"time"
)

// Snapshot is a point-in-time copy of the aggregated metrics. It shares no
// memory with the Aggregator that produced it.
type Snapshot struct {
	BootTime          time.Time                    `json:"boot_time"`
	TotalInteractions uint64                       `json:"total_interactions"`
	InteractionTypes  map[string]uint64            `json:"interaction_types"`
	CommandUsage      map[string]uint64            `json:"command_usage"`
	UniqueUserIDs     map[uint64]struct{}          `json:"-"`
	GuildActivity     map[uint64]uint64            `json:"guild_activity"`
	CompletionStatus  map[string]uint64            `json:"completion_status"`
	CommandLatency    map[string]LatencyStats      `json:"command_latency"`
	CommandFailures   map[string]map[string]uint64 `json:"command_failures"`
	ErrorTypes        map[string]uint64            `json:"error_types"`
}

// CommandCount is a command name with its invocation count.
type CommandCount struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

// UniqueUsers returns the number of distinct users seen.
func (s Snapshot) UniqueUsers() int {
	return len(s.UniqueUserIDs)
}

// HasUser reports whether the user has interacted with the bot.
func (s Snapshot) HasUser(id uint64) bool {
	_, ok := s.UniqueUserIDs[id]
	return ok
}

// ActiveGuilds returns the number of guilds with at least one interaction.
func (s Snapshot) ActiveGuilds() int {
	return len(s.GuildActivity)
}

// TotalCompletions sums completions across all statuses.
func (s Snapshot) TotalCompletions() uint64 {
	var total uint64
	for _, n := range s.CompletionStatus {
		total += n
	}
	return total
}

// TotalFailures sums completions whose status is not success.
func (s Snapshot) TotalFailures() uint64 {
	return s.TotalCompletions() - s.CompletionStatus[StatusSuccess]
}

// SuccessRate returns the share of successful completions in percent.
func (s Snapshot) SuccessRate() float64 {
	total := s.TotalCompletions()
	if total == 0 {
		return 0
	}
	return float64(s.CompletionStatus[StatusSuccess]) / float64(total) * 100
}

// TopCommands returns the n most used commands, most used first. Ties are
// ordered by name. A non-positive n returns all commands.
func (s Snapshot) TopCommands(n int) []CommandCount {
	out := make([]CommandCount, 0, len(s.CommandUsage))
	for name, count := range s.CommandUsage {
		out = append(out, CommandCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SortedKeys returns the keys of a counter map sorted by count descending,
// then by key.
func SortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Uptime returns how long the aggregator has been running at now.
func (s Snapshot) Uptime(now time.Time) time.Duration {
	if s.BootTime.IsZero() {
		return 0
	}
	return now.Sub(s.BootTime)
}
