package eventsourcing

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyBatch is returned when Append is called without events.
	// It indicates a bug in the calling code, not a retryable condition.
	ErrEmptyBatch = errors.New("empty event batch")

	// ErrMixedAggregateIDs is returned when a batch contains events whose
	// aggregate id differs from the stream being appended to.
	ErrMixedAggregateIDs = errors.New("event batch contains mixed aggregate ids")

	// ErrDuplicateHandler is returned when a handler is registered twice
	// under the same name.
	ErrDuplicateHandler = errors.New("duplicate handler")

	// ErrHandlerNotFound is returned when no handler is registered for a
	// query or command type.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrUnknownEventType is returned by a codec when the stored event type
	// discriminator has no registered decoder.
	ErrUnknownEventType = errors.New("unknown event type")
)

// ConcurrencyError reports an optimistic concurrency conflict: the stream
// was not at the version the writer observed when it loaded the aggregate.
// It is the only expected, caller-recoverable error from Append; the caller
// reloads, re-applies and retries.
type ConcurrencyError struct {
	Stream   StreamID
	Expected uint64
	Actual   uint64
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrency conflict on stream %s: expected version %d, actual %d",
		e.Stream, e.Expected, e.Actual)
}

// ErrSkippedEvent is returned when a handler cannot handle the event type.
type ErrSkippedEvent struct {
	Event Event
}

func (e *ErrSkippedEvent) Error() string {
	return fmt.Sprintf("skipped event of type %T", e.Event)
}

// EventStoreError wraps a storage-layer fault. Such faults are fatal to the
// operation and propagate unchanged; the store never retries internally.
type EventStoreError struct {
	Err error
}

func (e *EventStoreError) Error() string {
	return fmt.Sprintf("eventstore error: %v", e.Err)
}

func (e *EventStoreError) Unwrap() error {
	return e.Err
}

func WrapEventStoreError(err error) error {
	if err == nil {
		return nil
	}
	return &EventStoreError{Err: err}
}
