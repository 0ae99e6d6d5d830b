package eventsourcing

import (
	"encoding/json"
	"fmt"
	"sync"
)

// EventCodec translates events to and from their persisted representation.
// The event type discriminator is stored alongside the payload and drives
// decoding on the read path.
type EventCodec interface {
	Encode(event Event) (eventType string, data []byte, err error)
	Decode(eventType string, data []byte) (Event, error)
}

// Decoder turns a stored payload back into a concrete event.
type Decoder func(data []byte) (Event, error)

// JSONCodec is an EventCodec with an explicit decoder per event type.
// Every event variant an application persists is registered up front;
// there is no ambient registry, and an unregistered discriminator on the
// read path is an error. The wire format is the event's JSON encoding and
// stays stable independent of internal field layout.
type JSONCodec struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

var _ EventCodec = (*JSONCodec)(nil)

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{
		decoders: make(map[string]Decoder),
	}
}

// Register adds a decoder for the given event type discriminator.
// Panics on a duplicate or nil registration; both are programming errors.
func (c *JSONCodec) Register(eventType string, decode Decoder) {
	if decode == nil {
		panic(fmt.Sprintf("cannot register nil decoder for event type %s", eventType))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.decoders[eventType]; exists {
		panic(fmt.Sprintf("decoder already registered for event type %s", eventType))
	}
	c.decoders[eventType] = decode
}

func (c *JSONCodec) Encode(event Event) (string, []byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", nil, fmt.Errorf("encode event %s: %w", event.EventType(), err)
	}
	return event.EventType(), data, nil
}

func (c *JSONCodec) Decode(eventType string, data []byte) (Event, error) {
	c.mu.RLock()
	decode, ok := c.decoders[eventType]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("decode event %q: %w", eventType, ErrUnknownEventType)
	}

	event, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode event %q: %w", eventType, err)
	}
	return event, nil
}

// DecodeJSON builds a Decoder for a concrete event type.
//
// Example Usage:
//
//	codec.Register("OrderCreated", DecodeJSON[OrderCreated]())
func DecodeJSON[T Event]() Decoder {
	return func(data []byte) (Event, error) {
		var event T
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		return event, nil
	}
}
