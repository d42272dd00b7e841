// Package capture turns interaction notifications into telemetry events.
//
// Every entry point is best effort: extraction errors and panics are
// logged and swallowed so that telemetry can never break command handling.
package capture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/capy-discord/capy/pkg/analytics"
	"github.com/capy-discord/capy/pkg/correlation"
	"github.com/capy-discord/capy/pkg/discord"
	"github.com/capy-discord/capy/pkg/pipeline"
	"github.com/capy-discord/capy/pkg/telemetry"
)

var errNilInteraction = errors.New("interaction is nil")

// Capturer builds interaction and completion records and enqueues them.
type Capturer struct {
	tracker *correlation.Tracker
	queue   *pipeline.Queue
	logger  *telemetry.Logger
	tracer  *telemetry.Tracer
	now     func() time.Time
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithClock replaces time.Now when measuring durations.
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) {
		c.now = now
	}
}

// NewCapturer creates a capturer feeding queue.
func NewCapturer(tracker *correlation.Tracker, queue *pipeline.Queue, tel *telemetry.Telemetry, opts ...Option) *Capturer {
	if tel == nil {
		tel = telemetry.NewNopTelemetry()
	}
	c := &Capturer{
		tracker: tracker,
		queue:   queue,
		logger:  tel.Logger.NewComponentLogger("telemetry-capture"),
		tracer:  tel.Tracer,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CaptureInteraction starts correlation for i and enqueues its interaction
// record.
func (c *Capturer) CaptureInteraction(i *discord.Interaction) {
	defer c.recoverPanic("interaction")

	if i == nil {
		c.logger.WithError(errNilInteraction).Error("Failed to capture interaction event")
		return
	}

	record, err := c.InteractionRecord(i, "")
	if err != nil {
		c.logger.WithError(err).Error("Failed to capture interaction event")
		return
	}
	record["correlation_id"] = c.tracker.Begin(i.ID)
	c.queue.Enqueue(pipeline.NewInteractionEvent(record))
}

// CaptureCompletion ends correlation for i and enqueues a success record
// for cmd.
func (c *Capturer) CaptureCompletion(i *discord.Interaction, cmd *discord.Command) {
	defer c.recoverPanic("completion")

	if i == nil {
		c.logger.WithError(errNilInteraction).Error("Failed to capture completion event")
		return
	}

	entry, _ := c.tracker.End(i.ID)

	name := UnknownCommand
	if cmd != nil && cmd.Name != "" {
		name = cmd.Name
	} else if n, ok := CommandName(i); ok {
		name = n
	}

	c.queue.Enqueue(pipeline.NewCompletionEvent(map[string]any{
		"correlation_id": entry.CorrelationID,
		"command_name":   name,
		"status":         analytics.StatusSuccess,
		"duration_ms":    c.elapsedMS(entry.StartTime),
	}))
}

// CaptureFailure ends correlation for i and enqueues a classified failure
// record for err. i may be nil when the failure happened outside an
// interaction.
func (c *Capturer) CaptureFailure(i *discord.Interaction, err error) {
	defer c.recoverPanic("failure")

	var entry correlation.PendingEntry
	if i != nil {
		entry, _ = c.tracker.End(i.ID)
	} else {
		entry = correlation.PendingEntry{CorrelationID: correlation.UnknownID, StartTime: c.now()}
	}

	status, errorType := ClassifyFailure(err)
	command := failureCommand(i, err)

	ctx, span := c.tracer.StartFailureSpan(context.Background(), entry.CorrelationID, command, status)
	span.SetAttributes(telemetry.AttrErrorType.String(errorType))
	telemetry.RecordError(span, err)
	span.End()

	logger := c.logger.WithCorrelationID(entry.CorrelationID).WithCommand(command)
	if traceID := telemetry.TraceID(ctx); traceID != "" {
		logger = logger.WithField("trace_id", traceID)
	}
	logger.WithError(err).Debugf("Command failed (%s, %s)", status, errorType)

	c.queue.Enqueue(pipeline.NewCompletionEvent(map[string]any{
		"correlation_id": entry.CorrelationID,
		"command_name":   command,
		"status":         status,
		"duration_ms":    c.elapsedMS(entry.StartTime),
		"error_type":     errorType,
	}))
}

// InteractionRecord extracts the interaction record for i.
func (c *Capturer) InteractionRecord(i *discord.Interaction, correlationID string) (map[string]any, error) {
	if i == nil {
		return nil, errNilInteraction
	}
	if i.User.ID == 0 {
		return nil, fmt.Errorf("interaction %d has no user", i.ID)
	}

	var command any
	if name, ok := CommandName(i); ok {
		command = name
	}

	var guildID, guildName any
	if i.GuildID != nil {
		guildID = *i.GuildID
	}
	if i.Guild != nil {
		guildName = i.Guild.Name
	}

	timestamp := i.CreatedAt
	if timestamp.IsZero() {
		timestamp = c.now()
	}

	return map[string]any{
		"correlation_id":   correlationID,
		"interaction_type": Category(i),
		"user_id":          i.User.ID,
		"username":         i.User.String(),
		"command_name":     command,
		"guild_id":         guildID,
		"guild_name":       guildName,
		"channel_id":       i.ChannelID,
		"timestamp":        timestamp.UTC(),
		"options":          ExtractOptions(i),
	}, nil
}

// elapsedMS returns the milliseconds since start rounded to one decimal.
func (c *Capturer) elapsedMS(start time.Time) float64 {
	ms := float64(c.now().Sub(start)) / float64(time.Millisecond)
	return math.Round(ms*10) / 10
}

func (c *Capturer) recoverPanic(what string) {
	if r := recover(); r != nil {
		c.logger.Zerolog().Error().
			Interface("panic", r).
			Msgf("Failed to capture %s event", what)
	}
}
