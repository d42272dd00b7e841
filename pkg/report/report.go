// Package report renders aggregated telemetry for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/capy-discord/capy/pkg/analytics"
)

const (
	ruleWidth  = 50
	topN       = 5
	footerText = "In-memory stats, resets on bot restart"
)

var (
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Render writes the human-readable statistics report for snap as of now.
func Render(w io.Writer, snap analytics.Snapshot, now time.Time) error {
	var b strings.Builder

	rule := ruleStyle.Render(strings.Repeat("=", ruleWidth))

	b.WriteString(rule + "\n")
	b.WriteString("  " + titleStyle.Render("Bot Statistics") + "\n")
	fmt.Fprintf(&b, "  Stats since last restart (%s ago)\n", FormatUptime(snap.Uptime(now)))
	b.WriteString(rule + "\n")

	writeOverview(&b, snap)
	writeCommands(&b, snap)
	writeTypes(&b, snap)
	writeLatency(&b, snap)
	writeErrors(&b, snap)
	writeFailures(&b, snap)

	b.WriteString("\n" + rule + "\n")
	b.WriteString("  " + mutedStyle.Render(footerText) + "\n")
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, title string) {
	b.WriteString("\n" + sectionStyle.Render("--- "+title+" ---") + "\n")
}

func writeOverview(b *strings.Builder, snap analytics.Snapshot) {
	section(b, "Overview")
	fmt.Fprintf(b, "  Total Interactions: %d\n", snap.TotalInteractions)
	fmt.Fprintf(b, "  Unique Users:       %d\n", snap.UniqueUsers())
	fmt.Fprintf(b, "  Active Guilds:      %d\n", snap.ActiveGuilds())
	fmt.Fprintf(b, "  Success Rate:       %s\n", rateStyle(snap).Render(fmt.Sprintf("%.1f%%", snap.SuccessRate())))
}

func rateStyle(snap analytics.Snapshot) lipgloss.Style {
	switch rate := snap.SuccessRate(); {
	case snap.TotalCompletions() == 0:
		return mutedStyle
	case rate >= 90:
		return goodStyle
	case rate >= 70:
		return warnStyle
	default:
		return badStyle
	}
}

func writeCommands(b *strings.Builder, snap analytics.Snapshot) {
	if len(snap.CommandUsage) == 0 {
		return
	}
	section(b, "Top Commands")
	for _, cmd := range snap.TopCommands(topN) {
		avg := ""
		if stats, ok := snap.CommandLatency[cmd.Name]; ok && stats.Count > 0 {
			avg = mutedStyle.Render(fmt.Sprintf(" (%.1fms avg)", stats.AvgMS()))
		}
		fmt.Fprintf(b, "  /%s: %d%s\n", cmd.Name, cmd.Count, avg)
	}
}

func writeTypes(b *strings.Builder, snap analytics.Snapshot) {
	if len(snap.InteractionTypes) == 0 {
		return
	}
	section(b, "Interaction Types")
	for _, name := range sortedNames(snap.InteractionTypes) {
		fmt.Fprintf(b, "  %s: %d\n", name, snap.InteractionTypes[name])
	}
}

func writeLatency(b *strings.Builder, snap analytics.Snapshot) {
	if len(snap.CommandLatency) == 0 {
		return
	}
	section(b, "Latency Details")
	names := make([]string, 0, len(snap.CommandLatency))
	for name := range snap.CommandLatency {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := snap.CommandLatency[name]
		fmt.Fprintf(b, "  /%s: min=%.1fms  avg=%.1fms  max=%.1fms  (n=%d)\n",
			name, finiteMin(s), s.AvgMS(), s.MaxMS, s.Count)
	}
}

func writeErrors(b *strings.Builder, snap analytics.Snapshot) {
	if snap.TotalFailures() == 0 {
		return
	}
	section(b, "Errors")
	fmt.Fprintf(b, "  User Errors:     %s\n", warnStyle.Render(fmt.Sprint(snap.CompletionStatus[analytics.StatusUserError])))
	fmt.Fprintf(b, "  Internal Errors: %s\n", badStyle.Render(fmt.Sprint(snap.CompletionStatus[analytics.StatusInternalError])))
	if len(snap.ErrorTypes) > 0 {
		b.WriteString("  Top error types:\n")
		for _, name := range analytics.SortedKeys(snap.ErrorTypes) {
			fmt.Fprintf(b, "    %s: %d\n", name, snap.ErrorTypes[name])
		}
	}
}

func writeFailures(b *strings.Builder, snap analytics.Snapshot) {
	if len(snap.CommandFailures) == 0 {
		return
	}
	section(b, "Failures by Command")
	commands := make([]string, 0, len(snap.CommandFailures))
	for cmd := range snap.CommandFailures {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)
	for _, cmd := range commands {
		statuses := snap.CommandFailures[cmd]
		parts := make([]string, 0, len(statuses))
		for _, status := range sortedNames(statuses) {
			parts = append(parts, fmt.Sprintf("%s=%d", status, statuses[status]))
		}
		fmt.Fprintf(b, "  /%s: %s\n", cmd, strings.Join(parts, ", "))
	}
}

func sortedNames(m map[string]uint64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func finiteMin(s analytics.LatencyStats) float64 {
	if math.IsInf(s.MinMS, 1) {
		return 0
	}
	return s.MinMS
}

// FormatUptime renders d as "2h 15m 42s".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours, rem := total/3600, total%3600
	return fmt.Sprintf("%dh %dm %ds", hours, rem/60, rem%60)
}

// LatencySummary is the JSON form of analytics.LatencyStats. MinMS is
// omitted when nothing was recorded.
type LatencySummary struct {
	Count uint64   `json:"count"`
	MinMS *float64 `json:"min_ms,omitempty"`
	AvgMS float64  `json:"avg_ms"`
	MaxMS float64  `json:"max_ms"`
}

// Summary is the JSON form of a snapshot.
type Summary struct {
	BootTime          time.Time                    `json:"boot_time"`
	UptimeSeconds     int64                        `json:"uptime_seconds"`
	TotalInteractions uint64                       `json:"total_interactions"`
	UniqueUsers       int                          `json:"unique_users"`
	ActiveGuilds      int                          `json:"active_guilds"`
	SuccessRate       float64                      `json:"success_rate"`
	InteractionTypes  map[string]uint64            `json:"interaction_types"`
	CommandUsage      map[string]uint64            `json:"command_usage"`
	TopCommands       []analytics.CommandCount     `json:"top_commands"`
	GuildActivity     map[uint64]uint64            `json:"guild_activity"`
	CompletionStatus  map[string]uint64            `json:"completion_status"`
	CommandLatency    map[string]LatencySummary    `json:"command_latency"`
	CommandFailures   map[string]map[string]uint64 `json:"command_failures"`
	ErrorTypes        map[string]uint64            `json:"error_types"`
}

// Summarize converts snap into its JSON form as of now.
func Summarize(snap analytics.Snapshot, now time.Time) Summary {
	latency := make(map[string]LatencySummary, len(snap.CommandLatency))
	for name, s := range snap.CommandLatency {
		ls := LatencySummary{Count: s.Count, AvgMS: s.AvgMS(), MaxMS: s.MaxMS}
		if s.Count > 0 {
			v := s.MinMS
			ls.MinMS = &v
		}
		latency[name] = ls
	}

	return Summary{
		BootTime:          snap.BootTime,
		UptimeSeconds:     int64(snap.Uptime(now) / time.Second),
		TotalInteractions: snap.TotalInteractions,
		UniqueUsers:       snap.UniqueUsers(),
		ActiveGuilds:      snap.ActiveGuilds(),
		SuccessRate:       snap.SuccessRate(),
		InteractionTypes:  snap.InteractionTypes,
		CommandUsage:      snap.CommandUsage,
		TopCommands:       snap.TopCommands(topN),
		GuildActivity:     snap.GuildActivity,
		CompletionStatus:  snap.CompletionStatus,
		CommandLatency:    latency,
		CommandFailures:   snap.CommandFailures,
		ErrorTypes:        snap.ErrorTypes,
	}
}

// RenderJSON writes the JSON summary of snap as of now.
func RenderJSON(w io.Writer, snap analytics.Snapshot, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Summarize(snap, now))
}
