// Package observer wires the telemetry pipeline together and is the only
// surface the bot talks to: three non-blocking notification calls and a
// metrics snapshot.
//
//	obs, err := observer.New(cfg, tel)
//	if err != nil {
//	    return err
//	}
//	obs.Start(ctx)
//	defer obs.Shutdown(context.Background())
//
//	obs.NotifyInteraction(interaction)
//	obs.NotifyCompletion(interaction, command)
//	obs.RecordFailure(interaction, err)
package observer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/capy-discord/capy/pkg/analytics"
	"github.com/capy-discord/capy/pkg/capture"
	"github.com/capy-discord/capy/pkg/correlation"
	"github.com/capy-discord/capy/pkg/discord"
	"github.com/capy-discord/capy/pkg/pipeline"
	"github.com/capy-discord/capy/pkg/telemetry"
)

// Observer owns one telemetry pipeline. Its gauges are registered on the
// Telemetry's metrics, so each Telemetry serves a single Observer.
type Observer struct {
	config telemetry.PipelineConfig
	logger *telemetry.Logger
	tel    *telemetry.Telemetry

	tracker    *correlation.Tracker
	aggregator *analytics.Aggregator
	queue      *pipeline.Queue
	consumer   *pipeline.Consumer
	capturer   *capture.Capturer

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// Option configures an Observer.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for correlation and duration measurement.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New builds the pipeline described by cfg. tel may be nil, in which case
// logs and spans are discarded.
func New(cfg *telemetry.Config, tel *telemetry.Telemetry, opts ...Option) (*Observer, error) {
	if cfg == nil {
		cfg = telemetry.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tel == nil {
		tel = telemetry.NewNopTelemetry()
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	pc := cfg.Pipeline
	tracker := correlation.NewTracker(tel.Logger, tel.Metrics, pc.StaleThreshold, correlation.WithClock(o.now))
	aggregator := analytics.NewAggregatorAt(o.now())
	queue := pipeline.NewQueue(pc.QueueCapacity, tel.Logger, tel.Metrics)

	obs := &Observer{
		config:     pc,
		logger:     tel.Logger.NewComponentLogger("telemetry"),
		tel:        tel,
		tracker:    tracker,
		aggregator: aggregator,
		queue:      queue,
		consumer:   pipeline.NewConsumer(queue, aggregator, tel, pc.FlushInterval),
		capturer:   capture.NewCapturer(tracker, queue, tel, capture.WithClock(o.now)),
	}

	if err := queue.RegisterMetrics(); err != nil {
		return nil, registerError("queue", err)
	}
	if err := tracker.RegisterMetrics(); err != nil {
		return nil, registerError("correlation", err)
	}

	return obs, nil
}

func registerError(what string, err error) error {
	if errors.Is(err, telemetry.ErrMetricRegistered) {
		return fmt.Errorf("telemetry metrics already belong to another observer: %w", err)
	}
	return fmt.Errorf("failed to register %s metrics: %w", what, err)
}

// Start launches the consumer loop. Calling Start on a running observer
// does nothing.
func (o *Observer) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.consumer.Run(ctx)
	}()

	o.logger.Zerolog().Info().
		Int("queue_capacity", o.queue.Cap()).
		Dur("flush_interval", o.config.FlushInterval).
		Dur("stale_threshold", o.config.StaleThreshold).
		Msg("Telemetry pipeline started")
}

// Shutdown stops the consumer loop, waits for it to exit, then drains the
// queue synchronously so no accepted event is lost. Interactions still
// awaiting completion are logged. If the loop does not stop before ctx is
// done the queue is still drained and an error wrapping ctx.Err() is
// returned.
func (o *Observer) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.cancel()
		o.running = false
	}
	o.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(stopped)
	}()

	var err error
	select {
	case <-stopped:
	case <-ctx.Done():
		err = fmt.Errorf("telemetry consumer did not stop: %w", ctx.Err())
	}

	drained := o.consumer.Drain()
	leftovers := o.tracker.Drain()

	if err != nil {
		o.logger.Zerolog().Warn().
			Err(err).
			Int("drained_events", drained).
			Int("pending_interactions", len(leftovers)).
			Msg("Telemetry pipeline stopped before the consumer exited")
		return err
	}

	if ferr := o.tel.Flush(ctx); ferr != nil {
		o.logger.WithError(ferr).Warn("Failed to flush telemetry spans")
	}

	o.logger.Zerolog().Info().
		Int("drained_events", drained).
		Int("pending_interactions", len(leftovers)).
		Msg("Telemetry pipeline stopped")
	return nil
}

// NotifyInteraction records the start of an interaction. It never blocks.
func (o *Observer) NotifyInteraction(i *discord.Interaction) {
	o.capturer.CaptureInteraction(i)
}

// NotifyCompletion records the successful completion of cmd for i.
func (o *Observer) NotifyCompletion(i *discord.Interaction, cmd *discord.Command) {
	o.capturer.CaptureCompletion(i, cmd)
}

// RecordFailure records a failed command for i. i may be nil.
func (o *Observer) RecordFailure(i *discord.Interaction, err error) {
	o.capturer.CaptureFailure(i, err)
}

// Metrics returns a copy of the aggregated metrics.
func (o *Observer) Metrics() analytics.Snapshot {
	return o.aggregator.Snapshot()
}

// Flush processes queued events immediately on the caller's goroutine. It
// only works while the observer is not started, since the running loop is
// the queue's only consumer; otherwise it does nothing and returns 0.
func (o *Observer) Flush(ctx context.Context) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return 0
	}
	return o.consumer.Tick(ctx)
}

// QueueLen returns the number of events waiting for the consumer.
func (o *Observer) QueueLen() int {
	return o.queue.Len()
}

// PendingInteractions returns the number of interactions awaiting completion.
func (o *Observer) PendingInteractions() int {
	return o.tracker.Len()
}
