package pipeline

import (
	"github.com/capy-discord/capy/pkg/telemetry"
)

// DefaultQueueCapacity bounds the queue when no capacity is configured.
const DefaultQueueCapacity = 1000

// Queue is a bounded, non-blocking FIFO of events. Any number of goroutines
// may enqueue; a single consumer dequeues.
type Queue struct {
	events  chan Event
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
}

// NewQueue creates a queue holding at most capacity events.
func NewQueue(capacity int, logger *telemetry.Logger, metrics *telemetry.Metrics) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	if logger == nil {
		logger = telemetry.NewNopLogger()
	}
	return &Queue{
		events:  make(chan Event, capacity),
		logger:  logger.NewComponentLogger("telemetry-queue"),
		metrics: metrics,
	}
}

// Enqueue adds ev without blocking. When the queue is full the event is
// dropped, a warning is logged and false is returned.
func (q *Queue) Enqueue(ev Event) bool {
	select {
	case q.events <- ev:
		q.metrics.RecordEnqueued()
		return true
	default:
		q.metrics.RecordDropped()
		q.logger.Zerolog().Warn().
			Str("kind", string(ev.Kind)).
			Int("capacity", cap(q.events)).
			Msg("Telemetry queue full, dropping event")
		return false
	}
}

// TryDequeue removes the oldest event, if any, without blocking.
func (q *Queue) TryDequeue() (Event, bool) {
	select {
	case ev := <-q.events:
		return ev, true
	default:
		return Event{}, false
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.events)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.events)
}

// RegisterMetrics exposes the queue depth as a gauge.
func (q *Queue) RegisterMetrics() error {
	return q.metrics.RegisterGaugeFunc(
		"queue_depth",
		"Number of telemetry events waiting for the consumer",
		func() float64 { return float64(q.Len()) },
	)
}
