// Package pipeline buffers telemetry events between the capture layer and
// a single consumer that logs and aggregates them.
//
// Producers call Queue.Enqueue, which never blocks: when the queue is full
// the event is dropped with a warning. The Consumer drains the queue on a
// fixed interval and once more, synchronously, at shutdown.
package pipeline

// Kind identifies the record carried by an Event.
type Kind string

const (
	KindInteraction Kind = "interaction"
	KindCompletion  Kind = "completion"
)

// Event is one captured record. Data holds only flat values: nil, bools,
// numbers, strings, time.Time, []any and map[string]any.
type Event struct {
	Kind Kind
	Data map[string]any
}

// NewInteractionEvent wraps an interaction record.
func NewInteractionEvent(data map[string]any) Event {
	return Event{Kind: KindInteraction, Data: data}
}

// NewCompletionEvent wraps a completion or failure record.
func NewCompletionEvent(data map[string]any) Event {
	return Event{Kind: KindCompletion, Data: data}
}
