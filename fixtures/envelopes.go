package fixtures

import (
	"time"

	"github.com/google/uuid"

	es "github.com/devbanana/weight-log-api-sub000"
)

// EnvelopeOption is a functional option for configuring an Envelope.
type EnvelopeOption func(*es.Envelope)

// NewEnvelope creates an Envelope with the given event and options. The
// stream defaults to the event's aggregate id under the "test" aggregate
// type, at version 1.
func NewEnvelope(event es.Event, opts ...EnvelopeOption) es.Envelope {
	env := es.Envelope{
		EventID: uuid.New(),
		Stream: es.StreamID{
			AggregateID:   event.AggregateID(),
			AggregateType: "test",
		},
		Event:      event,
		Version:    1,
		OccurredAt: time.Now().UTC(),
		Metadata:   make(map[string]any),
	}

	for _, opt := range opts {
		opt(&env)
	}

	return env
}

// WithEventID sets a specific event ID.
func WithEventID(id uuid.UUID) EnvelopeOption {
	return func(e *es.Envelope) {
		e.EventID = id
	}
}

// WithStream overrides the stream identity.
func WithStream(stream es.StreamID) EnvelopeOption {
	return func(e *es.Envelope) {
		e.Stream = stream
	}
}

// WithVersion sets the stream version.
func WithVersion(v uint64) EnvelopeOption {
	return func(e *es.Envelope) {
		e.Version = v
	}
}

// WithTimestamp sets the occurred-at timestamp.
func WithTimestamp(t time.Time) EnvelopeOption {
	return func(e *es.Envelope) {
		e.OccurredAt = t
	}
}

// WithMetadataField adds a single metadata field.
func WithMetadataField(key string, value any) EnvelopeOption {
	return func(e *es.Envelope) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// EnvelopesFromEvents wraps events in envelopes with sequential versions
// starting at 1, all on the stream derived from the first event.
func EnvelopesFromEvents(aggregateType string, events ...es.Event) []es.Envelope {
	out := make([]es.Envelope, len(events))
	for i, event := range events {
		out[i] = NewEnvelope(event,
			WithStream(es.StreamID{AggregateID: event.AggregateID(), AggregateType: aggregateType}),
			WithVersion(uint64(i+1)),
		)
	}
	return out
}
