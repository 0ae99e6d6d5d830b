package fixtures

import (
	"context"
	"sync"

	es "github.com/devbanana/weight-log-api-sub000"
)

// StoreSpy is a configurable mock EventStore for testing.
// It tracks calls and allows injecting custom behavior or failures. When
// no failure is configured it behaves like a real store, backed by an
// in-memory MemoryStore.
type StoreSpy struct {
	mu sync.Mutex

	// Function overrides for custom behavior
	AppendFn  func(ctx context.Context, stream es.StreamID, events []es.Envelope, expectedVersion uint64) error
	LoadFn    func(ctx context.Context, stream es.StreamID) ([]es.Envelope, error)
	VersionFn func(ctx context.Context, stream es.StreamID) (uint64, error)
	CloseFn   func() error

	// Call tracking
	AppendCalls  int
	LoadCalls    int
	VersionCalls int
	CloseCalls   int

	// Captured arguments from last Append
	LastAppendStream   es.StreamID
	LastAppendEvents   []es.Envelope
	LastAppendExpected uint64

	backing *es.MemoryStore

	// Error injection
	appendErr    error
	loadErr      error
	conflictOnce bool
}

var _ es.EventStore = (*StoreSpy)(nil)

// NewStoreSpy creates a new StoreSpy with default behavior.
func NewStoreSpy() *StoreSpy {
	return &StoreSpy{
		backing: es.NewMemoryStore(),
	}
}

// WithHistory pre-populates the spy with committed events for a stream.
func (s *StoreSpy) WithHistory(stream es.StreamID, events ...es.Envelope) *StoreSpy {
	if err := s.backing.Append(context.Background(), stream, events, 0); err != nil {
		panic(err)
	}
	return s
}

// FailOnAppend configures the store to return an error on Append.
func (s *StoreSpy) FailOnAppend(err error) *StoreSpy {
	s.appendErr = err
	return s
}

// FailOnLoad configures the store to return an error on Load.
func (s *StoreSpy) FailOnLoad(err error) *StoreSpy {
	s.loadErr = err
	return s
}

// ConflictOnce makes the first Append fail with a ConcurrencyError while
// leaving later appends untouched. Useful for exercising retry paths.
func (s *StoreSpy) ConflictOnce() *StoreSpy {
	s.conflictOnce = true
	return s
}

// Append implements EventStore.Append.
func (s *StoreSpy) Append(ctx context.Context, stream es.StreamID, events []es.Envelope, expectedVersion uint64) error {
	s.mu.Lock()
	s.AppendCalls++
	s.LastAppendStream = stream
	s.LastAppendEvents = events
	s.LastAppendExpected = expectedVersion
	conflict := s.conflictOnce
	s.conflictOnce = false
	s.mu.Unlock()

	if s.AppendFn != nil {
		return s.AppendFn(ctx, stream, events, expectedVersion)
	}
	if s.appendErr != nil {
		return s.appendErr
	}
	if conflict {
		actual, _ := s.backing.Version(ctx, stream)
		return &es.ConcurrencyError{Stream: stream, Expected: expectedVersion, Actual: actual + 1}
	}

	return s.backing.Append(ctx, stream, events, expectedVersion)
}

// Load implements EventStore.Load.
func (s *StoreSpy) Load(ctx context.Context, stream es.StreamID) ([]es.Envelope, error) {
	s.mu.Lock()
	s.LoadCalls++
	s.mu.Unlock()

	if s.LoadFn != nil {
		return s.LoadFn(ctx, stream)
	}
	if s.loadErr != nil {
		return nil, s.loadErr
	}

	return s.backing.Load(ctx, stream)
}

// Version implements EventStore.Version.
func (s *StoreSpy) Version(ctx context.Context, stream es.StreamID) (uint64, error) {
	s.mu.Lock()
	s.VersionCalls++
	s.mu.Unlock()

	if s.VersionFn != nil {
		return s.VersionFn(ctx, stream)
	}

	return s.backing.Version(ctx, stream)
}

// Close implements EventStore.Close.
func (s *StoreSpy) Close() error {
	s.mu.Lock()
	s.CloseCalls++
	s.mu.Unlock()

	if s.CloseFn != nil {
		return s.CloseFn()
	}
	return s.backing.Close()
}
