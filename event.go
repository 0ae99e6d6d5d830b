package eventsourcing

import (
	"time"

	"github.com/google/uuid"
)

// InstrumentationVersion is reported with every span and metric emitted by
// this module.
const InstrumentationVersion = "0.1.0"

// Clock supplies the current time for new events. Implementations must
// return instants in UTC; aggregates never read ambient time directly.
type Clock func() time.Time

// UTCNow is the default Clock.
func UTCNow() time.Time { return time.Now().UTC() }

// Event is a domain event describing a change that has happened to an
// aggregate. Events are immutable once created.
type Event interface {
	AggregateID() string
	EventType() string
}

// StreamID identifies a single event stream. Two aggregates of different
// kinds may legitimately reuse the same id, so the aggregate type is part
// of the key.
type StreamID struct {
	AggregateID   string
	AggregateType string
}

func (s StreamID) String() string {
	return s.AggregateType + "-" + s.AggregateID
}

// Envelope wraps an Event together with the stream bookkeeping the event
// store needs: a unique event id, the stream identity, the 1-based stream
// version and the UTC instant the event occurred.
type Envelope struct {
	EventID    uuid.UUID
	Stream     StreamID
	Metadata   map[string]any
	Event      Event
	Version    uint64
	OccurredAt time.Time
}
