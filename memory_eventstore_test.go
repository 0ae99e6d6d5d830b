package eventsourcing_test

import (
	"context"
	"errors"
	"testing"

	es "github.com/devbanana/weight-log-api-sub000"
	"github.com/devbanana/weight-log-api-sub000/fixtures"
)

func TestMemoryStore_AppendAssignsSequentialVersions(t *testing.T) {
	store := es.NewMemoryStore()
	ctx := context.Background()
	stream := es.StreamID{AggregateID: "agg-1", AggregateType: "test"}

	events := fixtures.NewTestEvent().WithID("agg-1").WithData("payload").BuildN(3)
	batch := make([]es.Event, len(events))
	for i, e := range events {
		batch[i] = e
	}

	if err := store.Append(ctx, stream, fixtures.EnvelopesFromEvents("test", batch...), 0); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	loaded, err := store.Load(ctx, stream)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 events, got %d", len(loaded))
	}
	for i, env := range loaded {
		if env.Version != uint64(i+1) {
			t.Errorf("event %d: version %d, want %d", i, env.Version, i+1)
		}
		if env.Stream != stream {
			t.Errorf("event %d: stream %v, want %v", i, env.Stream, stream)
		}
	}
}

func TestMemoryStore_AppendContinuesFromExpectedVersion(t *testing.T) {
	store := es.NewMemoryStore()
	ctx := context.Background()
	stream := es.StreamID{AggregateID: "agg-1", AggregateType: "test"}

	first := fixtures.NewEnvelope(fixtures.NewTestEvent().WithID("agg-1").Build())
	if err := store.Append(ctx, stream, []es.Envelope{first}, 0); err != nil {
		t.Fatalf("first append failed: %v", err)
	}

	second := fixtures.NewEnvelope(fixtures.NewTestEvent().WithID("agg-1").Build())
	if err := store.Append(ctx, stream, []es.Envelope{second}, 1); err != nil {
		t.Fatalf("second append failed: %v", err)
	}

	loaded, _ := store.Load(ctx, stream)
	if loaded[1].Version != 2 {
		t.Errorf("expected second event at version 2, got %d", loaded[1].Version)
	}
}

func TestMemoryStore_ConcurrencyConflict(t *testing.T) {
	store := es.NewMemoryStore()
	ctx := context.Background()
	stream := es.StreamID{AggregateID: "agg-1", AggregateType: "test"}

	env := fixtures.NewEnvelope(fixtures.NewTestEvent().WithID("agg-1").Build())
	if err := store.Append(ctx, stream, []es.Envelope{env}, 0); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	stale := fixtures.NewEnvelope(fixtures.NewTestEvent().WithID("agg-1").Build())
	err := store.Append(ctx, stream, []es.Envelope{stale}, 0)

	var conflict *es.ConcurrencyError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConcurrencyError, got %v", err)
	}
	if conflict.Expected != 0 {
		t.Errorf("conflict.Expected = %d, want 0", conflict.Expected)
	}
	if conflict.Actual != 1 {
		t.Errorf("conflict.Actual = %d, want 1", conflict.Actual)
	}
	if conflict.Stream != stream {
		t.Errorf("conflict.Stream = %v, want %v", conflict.Stream, stream)
	}

	// The failed batch must not be partially applied.
	loaded, _ := store.Load(ctx, stream)
	if len(loaded) != 1 {
		t.Errorf("expected 1 event after rejected append, got %d", len(loaded))
	}
}

func TestMemoryStore_RejectsEmptyBatch(t *testing.T) {
	store := es.NewMemoryStore()
	stream := es.StreamID{AggregateID: "agg-1", AggregateType: "test"}

	err := store.Append(context.Background(), stream, nil, 0)
	if !errors.Is(err, es.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestMemoryStore_RejectsMixedAggregateIDs(t *testing.T) {
	store := es.NewMemoryStore()
	stream := es.StreamID{AggregateID: "agg-1", AggregateType: "test"}

	batch := []es.Envelope{
		fixtures.NewEnvelope(fixtures.NewTestEvent().WithID("agg-1").Build()),
		fixtures.NewEnvelope(fixtures.NewTestEvent().WithID("agg-2").Build()),
	}

	err := store.Append(context.Background(), stream, batch, 0)
	if !errors.Is(err, es.ErrMixedAggregateIDs) {
		t.Fatalf("expected ErrMixedAggregateIDs, got %v", err)
	}

	loaded, _ := store.Load(context.Background(), stream)
	if len(loaded) != 0 {
		t.Errorf("rejected batch must not persist anything, got %d events", len(loaded))
	}
}

func TestMemoryStore_StreamsIsolatedByAggregateType(t *testing.T) {
	store := es.NewMemoryStore()
	ctx := context.Background()

	widget := es.StreamID{AggregateID: "shared", AggregateType: "widget"}
	gadget := es.StreamID{AggregateID: "shared", AggregateType: "gadget"}

	wEnv := fixtures.NewEnvelope(fixtures.NewTestEvent().WithID("shared").Build(), fixtures.WithStream(widget))
	if err := store.Append(ctx, widget, []es.Envelope{wEnv}, 0); err != nil {
		t.Fatalf("append widget failed: %v", err)
	}

	// Same id, different type: this is a fresh stream at version 0.
	gEnv := fixtures.NewEnvelope(fixtures.NewTestEvent().WithID("shared").Build(), fixtures.WithStream(gadget))
	if err := store.Append(ctx, gadget, []es.Envelope{gEnv}, 0); err != nil {
		t.Fatalf("append gadget failed: %v", err)
	}

	wv, _ := store.Version(ctx, widget)
	gv, _ := store.Version(ctx, gadget)
	if wv != 1 || gv != 1 {
		t.Errorf("expected both streams at version 1, got %d and %d", wv, gv)
	}
}

func TestMemoryStore_UnknownStreamIsEmptyNotError(t *testing.T) {
	store := es.NewMemoryStore()
	stream := es.StreamID{AggregateID: "missing", AggregateType: "test"}

	loaded, err := store.Load(context.Background(), stream)
	if err != nil {
		t.Fatalf("load of unknown stream must not error, got %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty history, got %d events", len(loaded))
	}

	version, err := store.Version(context.Background(), stream)
	if err != nil {
		t.Fatalf("version of unknown stream must not error, got %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	store := es.NewMemoryStore()
	ctx := context.Background()
	stream := es.StreamID{AggregateID: "agg-1", AggregateType: "test"}

	env := fixtures.NewEnvelope(fixtures.NewTestEvent().WithID("agg-1").Build())
	if err := store.Append(ctx, stream, []es.Envelope{env}, 0); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	first, _ := store.Load(ctx, stream)
	first[0].Version = 999

	second, _ := store.Load(ctx, stream)
	if second[0].Version != 1 {
		t.Errorf("mutating a loaded slice leaked into the store: version %d", second[0].Version)
	}
}
