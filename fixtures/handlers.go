package fixtures

import (
	"context"
	"sync"

	es "github.com/devbanana/weight-log-api-sub000"
)

// RecordingHandler is an EventHandler that records every event it receives
// together with the envelope context it was delivered under. Safe for
// concurrent use.
type RecordingHandler struct {
	mu sync.Mutex

	// Err, when set, is returned from every Handle call.
	Err error

	events   []es.Event
	versions []uint64
	streams  []string
}

// NewRecordingHandler creates a new RecordingHandler.
func NewRecordingHandler() *RecordingHandler {
	return &RecordingHandler{}
}

// FailWith configures the handler to return err on every call.
func (h *RecordingHandler) FailWith(err error) *RecordingHandler {
	h.Err = err
	return h
}

// Handle implements EventHandler.
func (h *RecordingHandler) Handle(ctx context.Context, event es.Event) error {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.versions = append(h.versions, es.VersionFromContext(ctx))
	h.streams = append(h.streams, es.StreamIDFromContext(ctx))
	h.mu.Unlock()
	return h.Err
}

// Events returns a copy of the recorded events in delivery order.
func (h *RecordingHandler) Events() []es.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]es.Event, len(h.events))
	copy(out, h.events)
	return out
}

// Versions returns the context stream versions seen per delivery.
func (h *RecordingHandler) Versions() []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]uint64, len(h.versions))
	copy(out, h.versions)
	return out
}

// Streams returns the context stream ids seen per delivery.
func (h *RecordingHandler) Streams() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.streams))
	copy(out, h.streams)
	return out
}

// Count returns the number of events received.
func (h *RecordingHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}
