package eventsourcing

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DispatchingStore decorates an EventStore and delivers appended events to
// a fixed set of listeners once the inner append has durably succeeded.
//
// Listeners are supplied at construction; there is no ambient registration.
// Delivery is synchronous and in append order, one event at a time, with
// the envelope fields available through the context (see WithEnvelope).
// A failed inner append, concurrency conflict or otherwise, publishes
// nothing. Delivery is at-least-once across restarts of the surrounding
// infrastructure, so listeners must be idempotent.
//
// If a listener returns an error the remaining deliveries for the batch
// are abandoned and the error is returned to the caller; the append itself
// stands. A listener that returns ErrSkippedEvent simply does not care
// about that event type and is not treated as a failure.
type DispatchingStore struct {
	next     EventStore
	handlers []EventHandler
}

var _ EventStore = (*DispatchingStore)(nil)

// NewDispatchingStore wraps next so that every successfully appended event
// is handed to each of the given listeners.
func NewDispatchingStore(next EventStore, handlers ...EventHandler) *DispatchingStore {
	return &DispatchingStore{
		next:     next,
		handlers: handlers,
	}
}

func (d *DispatchingStore) Append(ctx context.Context, stream StreamID, events []Envelope, expectedVersion uint64) error {
	if err := d.next.Append(ctx, stream, events, expectedVersion); err != nil {
		return err
	}

	for i := range events {
		envelope := &events[i]

		// The inner store assigned committed positions to its own copies;
		// renumber the caller's envelopes the same way so listeners never
		// observe a stale pre-set version.
		envelope.Stream = stream
		envelope.Version = expectedVersion + uint64(i) + 1

		eventCtx, span := tracer.Start(WithEnvelope(ctx, envelope), "eventstore.dispatch",
			trace.WithAttributes(
				AttrStreamID.String(stream.String()),
				AttrEventID.String(envelope.EventID.String()),
				AttrEventType.String(envelope.Event.EventType()),
				AttrStreamVersion.Int64(int64(envelope.Version)),
			),
		)

		for _, handler := range d.handlers {
			err := handler.Handle(eventCtx, envelope.Event)
			if err == nil {
				continue
			}

			var skipped *ErrSkippedEvent
			if errors.As(err, &skipped) {
				continue
			}

			DispatchErrors.Add(eventCtx, 1, metric.WithAttributes(
				AttrEventType.String(envelope.Event.EventType()),
				AttrErrorType.String(fmt.Sprintf("%T", err)),
			))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return fmt.Errorf("dispatch %s on stream %s after append: %w",
				envelope.Event.EventType(), stream, err)
		}

		EventsDispatched.Add(eventCtx, 1, metric.WithAttributes(AttrEventType.String(envelope.Event.EventType())))
		span.End()
	}

	return nil
}

func (d *DispatchingStore) Load(ctx context.Context, stream StreamID) ([]Envelope, error) {
	return d.next.Load(ctx, stream)
}

func (d *DispatchingStore) Version(ctx context.Context, stream StreamID) (uint64, error) {
	return d.next.Version(ctx, stream)
}

func (d *DispatchingStore) Close() error {
	return d.next.Close()
}
