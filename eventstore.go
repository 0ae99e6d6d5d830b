package eventsourcing

import (
	"context"
)

// EventStore defines the contract for an append-only event store used in
// event-sourced systems. An EventStore persists events per stream in
// sequential order, allowing full reconstruction of aggregate state.
//
// Implementations must guarantee:
//   - Events for a given stream are stored and returned in version order.
//   - The stream version is the count of events ever appended, 1-indexed,
//     with no gaps: a successful Append of N events advances it by N.
//   - Concurrency control based on the caller's expected version.
//   - A multi-event append is atomic: all events persist or none do.
type EventStore interface {
	// Append appends all events in the given batch to the stream.
	//
	// Parameters:
	//   - ctx: request-scoped context for cancellation and tracing.
	//   - stream: the (aggregate id, aggregate type) stream identity.
	//   - events: a non-empty, ordered batch of envelopes. Every event in
	//     the batch must carry the stream's aggregate id.
	//   - expectedVersion: the stream version the caller observed when it
	//     loaded the aggregate. 0 means the stream is expected not to
	//     exist yet.
	//
	// Errors:
	//   - ErrEmptyBatch / ErrMixedAggregateIDs on caller misuse.
	//   - *ConcurrencyError if the stream is not at expectedVersion; no
	//     events are written in that case.
	//   - *EventStoreError for any storage-layer fault.
	Append(ctx context.Context, stream StreamID, events []Envelope, expectedVersion uint64) error

	// Load returns all events for the stream in ascending version order.
	// An unknown stream yields an empty slice, never an error.
	Load(ctx context.Context, stream StreamID) ([]Envelope, error)

	// Version returns the current version of the stream, which equals the
	// number of events appended to it. An unknown stream is at version 0.
	Version(ctx context.Context, stream StreamID) (uint64, error)

	// Close releases any resources held by the EventStore, such as network
	// connections. Implementations should make Close idempotent.
	Close() error
}
