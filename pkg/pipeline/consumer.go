package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/capy-discord/capy/pkg/analytics"
	"github.com/capy-discord/capy/pkg/telemetry"
)

// DefaultFlushInterval is how often the consumer drains the queue when no
// interval is configured.
const DefaultFlushInterval = time.Second

// Consumer is the single reader of a Queue. Each event is written to the
// event log and folded into the aggregator.
type Consumer struct {
	queue      *Queue
	aggregator *analytics.Aggregator
	interval   time.Duration

	logger  *telemetry.Logger
	events  *telemetry.Logger
	tracer  *telemetry.Tracer
	metrics *telemetry.Metrics
}

// NewConsumer creates a consumer that drains queue every interval.
func NewConsumer(queue *Queue, aggregator *analytics.Aggregator, tel *telemetry.Telemetry, interval time.Duration) *Consumer {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	if tel == nil {
		tel = telemetry.NewNopTelemetry()
	}
	return &Consumer{
		queue:      queue,
		aggregator: aggregator,
		interval:   interval,
		logger:     tel.Logger.NewComponentLogger("telemetry-consumer"),
		events:     tel.EventLogger,
		tracer:     tel.Tracer,
		metrics:    tel.Metrics,
	}
}

// Run drains the queue on every tick until ctx is cancelled. Events still
// queued when Run returns are left for Drain.
func (c *Consumer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Debugf("Telemetry consumer started (interval %s)", c.interval)

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Telemetry consumer stopped")
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick processes up to Cap events, stopping early when the queue is empty.
// It returns the number of events taken from the queue.
func (c *Consumer) Tick(ctx context.Context) int {
	if c.queue.Len() == 0 {
		return 0
	}

	_, span := c.tracer.StartConsumerTickSpan(ctx, c.queue.Len())
	defer span.End()

	processed, failed := 0, 0
	for i := 0; i < c.queue.Cap(); i++ {
		ev, ok := c.queue.TryDequeue()
		if !ok {
			break
		}
		processed++
		if !c.process(ev) {
			failed++
		}
	}

	span.SetAttributes(
		telemetry.AttrEventsProcessed.Int(processed),
		telemetry.AttrEventsFailed.Int(failed),
	)
	if failed > 0 {
		telemetry.RecordError(span, fmt.Errorf("%d of %d telemetry events failed", failed, processed))
	} else {
		telemetry.RecordSuccess(span)
	}
	return processed
}

// Drain dispatches every remaining event synchronously and returns how many
// there were. A summary warning is logged when at least one was drained.
func (c *Consumer) Drain() int {
	drained := 0
	for {
		ev, ok := c.queue.TryDequeue()
		if !ok {
			break
		}
		drained++
		c.process(ev)
	}
	if drained > 0 {
		c.logger.Warnf("Drained %d telemetry events during shutdown", drained)
	}
	return drained
}

// process dispatches one event and reports whether it succeeded. Errors and
// panics are logged and never stop the caller.
func (c *Consumer) process(ev Event) bool {
	if err := c.dispatch(ev); err != nil {
		c.metrics.RecordDispatchError()
		logger := c.logger.WithError(err).WithField("kind", string(ev.Kind))
		if id, ok := ev.Data["correlation_id"].(string); ok {
			logger = logger.WithCorrelationID(id)
		}
		if name, ok := ev.Data["command_name"].(string); ok {
			logger = logger.WithCommand(name)
		}
		logger.Error("Failed to dispatch telemetry event")
		return false
	}
	return true
}

func (c *Consumer) dispatch(ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while dispatching %s event: %v", ev.Kind, r)
		}
	}()

	switch ev.Kind {
	case KindInteraction:
		rec, err := DecodeInteraction(ev.Data)
		if err != nil {
			return fmt.Errorf("failed to decode interaction event: %w", err)
		}
		c.logRecord(ev, "Interaction captured")
		c.aggregator.RecordInteraction(rec)
		c.metrics.RecordInteraction(rec.Type, rec.CommandName)

	case KindCompletion:
		rec, err := DecodeCompletion(ev.Data)
		if err != nil {
			return fmt.Errorf("failed to decode completion event: %w", err)
		}
		c.logRecord(ev, "Command completed")
		c.aggregator.RecordCompletion(rec)
		duration := time.Duration(-1)
		if rec.DurationMS != nil {
			duration = time.Duration(*rec.DurationMS * float64(time.Millisecond))
		}
		c.metrics.RecordCompletion(rec.CommandName, rec.Status, duration, rec.ErrorType)

	default:
		c.logger.Zerolog().Warn().Str("kind", string(ev.Kind)).Msg("Unknown telemetry event kind")
		return nil
	}

	c.metrics.RecordDispatched(string(ev.Kind))
	return nil
}

// logRecord writes one debug line to the event log with every field of the
// record, in key order.
func (c *Consumer) logRecord(ev Event, msg string) {
	zl := c.events.Zerolog()
	if !c.events.Enabled(zerolog.DebugLevel) {
		return
	}

	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e := zl.Debug().Str("event", string(ev.Kind))
	for _, k := range keys {
		e = e.Interface(k, ev.Data[k])
	}
	e.Msg(msg)
}
