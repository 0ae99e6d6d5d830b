package eventsourcing

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MemoryStore is the in-memory reference implementation of EventStore.
// It is safe for concurrent use; the mutex makes the version check and the
// multi-event insert a single atomic step.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[StreamID][]Envelope
}

var _ EventStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[StreamID][]Envelope),
	}
}

func (m *MemoryStore) Append(ctx context.Context, stream StreamID, events []Envelope, expectedVersion uint64) error {
	ctx, span := tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			AttrOperation.String("append"),
			AttrStreamID.String(stream.String()),
			AttrEventCount.Int(len(events)),
		),
	)
	defer span.End()

	if len(events) == 0 {
		span.SetStatus(codes.Error, ErrEmptyBatch.Error())
		return fmt.Errorf("append to stream %s: %w", stream, ErrEmptyBatch)
	}
	for i := range events {
		if events[i].Event.AggregateID() != stream.AggregateID {
			span.SetStatus(codes.Error, ErrMixedAggregateIDs.Error())
			return fmt.Errorf("append to stream %s: event %d has aggregate id %q: %w",
				stream, i, events[i].Event.AggregateID(), ErrMixedAggregateIDs)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	currentVersion := uint64(len(m.events[stream]))
	if currentVersion != expectedVersion {
		err := &ConcurrencyError{Stream: stream, Expected: expectedVersion, Actual: currentVersion}
		ConcurrencyConflicts.Add(ctx, 1, metric.WithAttributes(AttrStreamID.String(stream.String())))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	for i := range events {
		envelope := events[i]
		envelope.Stream = stream
		envelope.Version = expectedVersion + uint64(i) + 1
		m.events[stream] = append(m.events[stream], envelope)

		span.AddEvent("stored event",
			trace.WithAttributes(
				AttrEventType.String(envelope.Event.EventType()),
				AttrStreamVersion.Int64(int64(envelope.Version)),
			),
		)
	}

	EventsAppended.Add(ctx, int64(len(events)), metric.WithAttributes(AttrStreamID.String(stream.String())))
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, stream StreamID) ([]Envelope, error) {
	ctx, span := tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(
			AttrOperation.String("load"),
			AttrStreamID.String(stream.String()),
		),
	)
	defer span.End()

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.events[stream]
	out := make([]Envelope, len(stored))
	copy(out, stored)

	EventsLoaded.Add(ctx, int64(len(out)), metric.WithAttributes(AttrStreamID.String(stream.String())))
	return out, nil
}

func (m *MemoryStore) Version(ctx context.Context, stream StreamID) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.events[stream])), nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make(map[StreamID][]Envelope)
	return nil
}
