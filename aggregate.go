package eventsourcing

import (
	"github.com/google/uuid"
)

// Aggregate is the interface that all aggregates must implement.
type Aggregate interface {

	// EntityID returns the unique identifier of the aggregate.
	EntityID() string

	// AggregateType returns the kind of aggregate, used as part of the
	// stream identity.
	AggregateType() string

	// AggregateVersion returns the committed version of the aggregate.
	AggregateVersion() uint64

	// SetAggregateVersion sets the committed version of the aggregate.
	SetAggregateVersion(version uint64)

	// UncommittedEvents returns all the events that are currently uncommitted.
	UncommittedEvents() []Envelope

	// ClearUncommittedEvents clears all uncommitted events from the aggregate.
	ClearUncommittedEvents()

	// ApplyEvent folds a single event into the aggregate's derived state.
	// Concrete aggregates implement this as an exhaustive switch over
	// their event variants; an unknown variant is a programming error.
	ApplyEvent(event Event)
}

// AggregateBase carries the identity, version and uncommitted-event buffer
// shared by all aggregates. Concrete aggregates embed it and implement
// ApplyEvent on top.
type AggregateBase struct {
	id     string
	typ    string
	v      uint64
	clock  Clock
	events []Envelope
}

// NewAggregateBase creates an aggregate base for the given identity.
func NewAggregateBase(id, aggregateType string) *AggregateBase {
	return &AggregateBase{
		id:     id,
		typ:    aggregateType,
		clock:  UTCNow,
		events: make([]Envelope, 0),
	}
}

// SetClock replaces the clock used to timestamp recorded events.
func (a *AggregateBase) SetClock(clock Clock) {
	if clock != nil {
		a.clock = clock
	}
}

// EntityID implements the EntityID method of the Aggregate interface.
func (a *AggregateBase) EntityID() string {
	return a.id
}

// AggregateType implements the AggregateType method of the Aggregate interface.
func (a *AggregateBase) AggregateType() string {
	return a.typ
}

// AggregateVersion implements the AggregateVersion method of the Aggregate interface.
func (a *AggregateBase) AggregateVersion() uint64 {
	return a.v
}

// SetAggregateVersion implements the SetAggregateVersion method of the Aggregate interface.
func (a *AggregateBase) SetAggregateVersion(v uint64) {
	a.v = v
}

// UncommittedEvents implements the UncommittedEvents method of the Aggregate interface.
func (a *AggregateBase) UncommittedEvents() []Envelope {
	return a.events
}

// ClearUncommittedEvents implements the ClearUncommittedEvents method of the
// Aggregate interface. Callers invoke it exactly once, after a successful
// append; the buffer must never be released twice.
func (a *AggregateBase) ClearUncommittedEvents() {
	a.events = nil
}

// Record buffers a new event for later retrieval by UncommittedEvents.
// The envelope version continues the stream: committed version plus the
// events already buffered, plus one.
func (a *AggregateBase) Record(event Event, options ...EventOption) {

	envelope := Envelope{
		EventID:    uuid.New(),
		Stream:     StreamID{AggregateID: a.id, AggregateType: a.typ},
		Metadata:   make(map[string]any),
		Event:      event,
		Version:    a.v + uint64(len(a.events)) + 1,
		OccurredAt: a.clock().UTC(),
	}

	for _, option := range options {
		option(&envelope)
	}

	a.events = append(a.events, envelope)
}

// EventOption customizes a recorded envelope.
type EventOption func(*Envelope)

// WithEventID overrides the generated event id.
func WithEventID(id uuid.UUID) EventOption {
	return func(e *Envelope) { e.EventID = id }
}

// WithMetadata merges the given keys into the envelope metadata.
func WithMetadata(metadata map[string]any) EventOption {
	return func(e *Envelope) {
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}

// Reconstitute rebuilds an aggregate by replaying its full history in
// order. The result is indistinguishable from an aggregate that produced
// the same events incrementally.
func Reconstitute[A Aggregate](agg A, history []Envelope) A {
	for _, envelope := range history {
		agg.ApplyEvent(envelope.Event)
		agg.SetAggregateVersion(envelope.Version)
	}
	return agg
}
