// Package correlation pairs the start of an interaction with its eventual
// completion or failure through a short correlation id.
package correlation

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/capy-discord/capy/pkg/telemetry"
)

// UnknownID is returned by End when no pending entry exists.
const UnknownID = "unknown"

// DefaultStaleThreshold is the age after which pending entries are reaped.
const DefaultStaleThreshold = 60 * time.Second

// PendingEntry is an interaction that has begun but not yet resolved.
type PendingEntry struct {
	InteractionID uint64
	CorrelationID string
	StartTime     time.Time
}

// Tracker maps interaction ids to pending entries. It is safe for
// concurrent use.
type Tracker struct {
	mu        sync.Mutex
	pending   map[uint64]PendingEntry
	threshold time.Duration
	now       func() time.Time
	newID     func() string

	logger  *telemetry.Logger
	metrics *telemetry.Metrics
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithIDGenerator replaces the random correlation id source.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) {
		t.newID = gen
	}
}

// NewTracker creates a tracker that reaps entries older than staleThreshold.
// A non-positive threshold selects DefaultStaleThreshold.
func NewTracker(logger *telemetry.Logger, metrics *telemetry.Metrics, staleThreshold time.Duration, opts ...Option) *Tracker {
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}
	if logger == nil {
		logger = telemetry.NewNopLogger()
	}

	t := &Tracker{
		pending:   make(map[uint64]PendingEntry),
		threshold: staleThreshold,
		now:       time.Now,
		newID:     NewCorrelationID,
		logger:    logger.NewComponentLogger("correlation"),
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewCorrelationID returns 12 lowercase hex characters taken from a random UUID.
func NewCorrelationID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:6])
}

// Begin reaps stale entries, then records a fresh correlation id for
// interactionID and returns it. An existing entry for the same id is replaced.
func (t *Tracker) Begin(interactionID uint64) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.reapLocked(now, t.threshold)

	id := t.newID()
	t.pending[interactionID] = PendingEntry{
		InteractionID: interactionID,
		CorrelationID: id,
		StartTime:     now,
	}
	return id
}

// End removes and returns the pending entry for interactionID. When there
// is none it returns an entry with UnknownID started now, and false.
func (t *Tracker) End(interactionID uint64) (PendingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.pending[interactionID]; ok {
		delete(t.pending, interactionID)
		return entry, true
	}
	return PendingEntry{
		InteractionID: interactionID,
		CorrelationID: UnknownID,
		StartTime:     t.now(),
	}, false
}

// Reap removes entries that started more than threshold ago and returns
// how many were removed.
func (t *Tracker) Reap(threshold time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reapLocked(t.now(), threshold)
}

func (t *Tracker) reapLocked(now time.Time, threshold time.Duration) int {
	removed := 0
	for id, entry := range t.pending {
		if now.Sub(entry.StartTime) > threshold {
			delete(t.pending, id)
			removed++
		}
	}
	if removed > 0 {
		t.logger.Debugf("Reaped %d stale correlation entries", removed)
		t.metrics.RecordReaped(removed)
	}
	return removed
}

// Len returns the number of pending entries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Drain removes every pending entry, logging a warning for each, and
// returns them. It is called once at shutdown.
func (t *Tracker) Drain() []PendingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	leftovers := make([]PendingEntry, 0, len(t.pending))
	for id, entry := range t.pending {
		t.logger.Zerolog().Warn().
			Uint64("interaction_id", id).
			Str("correlation_id", entry.CorrelationID).
			Msg("Interaction never completed before shutdown")
		leftovers = append(leftovers, entry)
		delete(t.pending, id)
	}
	return leftovers
}

// RegisterMetrics exposes the number of pending entries as a gauge.
func (t *Tracker) RegisterMetrics() error {
	return t.metrics.RegisterGaugeFunc(
		"correlations_pending",
		"Number of interactions awaiting completion",
		func() float64 { return float64(t.Len()) },
	)
}
