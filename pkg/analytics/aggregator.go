// Package analytics keeps the in-memory interaction and command metrics
// for the lifetime of the process.
package analytics

import (
	"sync"
	"time"
)

// Aggregator folds interaction and completion records into counters. All
// methods are safe for concurrent use.
type Aggregator struct {
	mu sync.Mutex

	bootTime          time.Time
	totalInteractions uint64
	interactionTypes  map[string]uint64
	commandUsage      map[string]uint64
	uniqueUsers       map[uint64]struct{}
	guildActivity     map[uint64]uint64
	completionStatus  map[string]uint64
	commandLatency    map[string]*LatencyStats
	commandFailures   map[string]map[string]uint64
	errorTypes        map[string]uint64
}

// NewAggregator returns an empty aggregator whose boot time is now.
func NewAggregator() *Aggregator {
	return NewAggregatorAt(time.Now())
}

// NewAggregatorAt returns an empty aggregator with the given boot time.
func NewAggregatorAt(boot time.Time) *Aggregator {
	return &Aggregator{
		bootTime:         boot,
		interactionTypes: make(map[string]uint64),
		commandUsage:     make(map[string]uint64),
		uniqueUsers:      make(map[uint64]struct{}),
		guildActivity:    make(map[uint64]uint64),
		completionStatus: make(map[string]uint64),
		commandLatency:   make(map[string]*LatencyStats),
		commandFailures:  make(map[string]map[string]uint64),
		errorTypes:       make(map[string]uint64),
	}
}

// RecordInteraction counts one interaction.
func (a *Aggregator) RecordInteraction(rec Interaction) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalInteractions++
	a.interactionTypes[rec.Type]++
	if rec.CommandName != "" {
		a.commandUsage[rec.CommandName]++
	}
	a.uniqueUsers[rec.UserID] = struct{}{}
	if rec.GuildID != nil {
		a.guildActivity[*rec.GuildID]++
	}
}

// RecordCompletion counts one completion or failure.
func (a *Aggregator) RecordCompletion(rec Completion) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.completionStatus[rec.Status]++

	if rec.DurationMS != nil {
		stats, ok := a.commandLatency[rec.CommandName]
		if !ok {
			s := NewLatencyStats()
			stats = &s
			a.commandLatency[rec.CommandName] = stats
		}
		stats.Record(*rec.DurationMS)
	}

	if rec.Failed() {
		byStatus, ok := a.commandFailures[rec.CommandName]
		if !ok {
			byStatus = make(map[string]uint64)
			a.commandFailures[rec.CommandName] = byStatus
		}
		byStatus[rec.Status]++
	}

	if rec.ErrorType != "" {
		a.errorTypes[rec.ErrorType]++
	}
}

// Snapshot returns a deep copy of the current state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		BootTime:          a.bootTime,
		TotalInteractions: a.totalInteractions,
		InteractionTypes:  copyCounts(a.interactionTypes),
		CommandUsage:      copyCounts(a.commandUsage),
		UniqueUserIDs:     make(map[uint64]struct{}, len(a.uniqueUsers)),
		GuildActivity:     make(map[uint64]uint64, len(a.guildActivity)),
		CompletionStatus:  copyCounts(a.completionStatus),
		CommandLatency:    make(map[string]LatencyStats, len(a.commandLatency)),
		CommandFailures:   make(map[string]map[string]uint64, len(a.commandFailures)),
		ErrorTypes:        copyCounts(a.errorTypes),
	}
	for id := range a.uniqueUsers {
		snap.UniqueUserIDs[id] = struct{}{}
	}
	for id, n := range a.guildActivity {
		snap.GuildActivity[id] = n
	}
	for cmd, stats := range a.commandLatency {
		snap.CommandLatency[cmd] = *stats
	}
	for cmd, byStatus := range a.commandFailures {
		snap.CommandFailures[cmd] = copyCounts(byStatus)
	}
	return snap
}

func copyCounts(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
