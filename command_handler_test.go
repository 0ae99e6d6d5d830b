package eventsourcing_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cenkalti/backoff/v4"

	es "github.com/devbanana/weight-log-api-sub000"
	"github.com/devbanana/weight-log-api-sub000/fixtures"
)

// counter is a minimal event-sourced aggregate used to exercise the
// generic command handler.

type counterIncremented struct {
	ID string `json:"id"`
	By int    `json:"by"`
}

func (e counterIncremented) AggregateID() string { return e.ID }
func (e counterIncremented) EventType() string   { return "CounterIncremented" }

var errInvalidIncrement = errors.New("increment must be positive")

type counter struct {
	*es.AggregateBase
	total int
}

func newCounter(id string) *counter {
	return &counter{AggregateBase: es.NewAggregateBase(id, "counter")}
}

func (c *counter) ApplyEvent(event es.Event) {
	switch e := event.(type) {
	case counterIncremented:
		c.total += e.By
	default:
		panic(fmt.Sprintf("counter cannot apply event of type %T", event))
	}
}

func (c *counter) increment(by int) error {
	if by <= 0 {
		return errInvalidIncrement
	}
	c.Record(counterIncremented{ID: c.EntityID(), By: by})
	c.total += by
	return nil
}

type increment struct {
	ID string
	By int
}

func (c increment) AggregateID() string { return c.ID }

func newIncrementHandler(store es.EventStore, opts ...es.CommandHandlerOption) es.CommandHandler[increment] {
	return es.NewCommandHandler(store, newCounter,
		func(ctx context.Context, c *counter, cmd increment) error {
			return c.increment(cmd.By)
		},
		opts...,
	)
}

func TestCommandHandler_AppendsRecordedEvents(t *testing.T) {
	spy := fixtures.NewStoreSpy()
	handler := newIncrementHandler(spy)

	result, err := handler(context.Background(), increment{ID: "c-1", By: 5})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.NextExpectedVersion != 1 {
		t.Errorf("NextExpectedVersion = %d, want 1", result.NextExpectedVersion)
	}
	if result.Stream != (es.StreamID{AggregateID: "c-1", AggregateType: "counter"}) {
		t.Errorf("unexpected stream %v", result.Stream)
	}
	if spy.AppendCalls != 1 {
		t.Fatalf("expected one append, got %d", spy.AppendCalls)
	}
	if spy.LastAppendExpected != 0 {
		t.Errorf("append expected version %d, want 0", spy.LastAppendExpected)
	}

	loaded, _ := spy.Load(context.Background(), result.Stream)
	if len(loaded) != 1 {
		t.Fatalf("expected 1 persisted event, got %d", len(loaded))
	}
	if ev := loaded[0].Event.(counterIncremented); ev.By != 5 {
		t.Errorf("persisted event By = %d, want 5", ev.By)
	}
}

func TestCommandHandler_SecondCommandContinuesStream(t *testing.T) {
	spy := fixtures.NewStoreSpy()
	handler := newIncrementHandler(spy)
	ctx := context.Background()

	if _, err := handler(ctx, increment{ID: "c-1", By: 1}); err != nil {
		t.Fatalf("first command failed: %v", err)
	}
	result, err := handler(ctx, increment{ID: "c-1", By: 2})
	if err != nil {
		t.Fatalf("second command failed: %v", err)
	}

	if result.NextExpectedVersion != 2 {
		t.Errorf("NextExpectedVersion = %d, want 2", result.NextExpectedVersion)
	}
	if spy.LastAppendExpected != 1 {
		t.Errorf("second append used expected version %d, want 1", spy.LastAppendExpected)
	}
}

func TestCommandHandler_BusinessErrorAppendsNothing(t *testing.T) {
	spy := fixtures.NewStoreSpy()
	handler := newIncrementHandler(spy)

	_, err := handler(context.Background(), increment{ID: "c-1", By: 0})
	if !errors.Is(err, errInvalidIncrement) {
		t.Fatalf("expected business error, got %v", err)
	}
	if spy.AppendCalls != 0 {
		t.Errorf("business failures must not append, got %d append calls", spy.AppendCalls)
	}
}

func TestCommandHandler_NoEventsNoAppend(t *testing.T) {
	spy := fixtures.NewStoreSpy()
	handler := es.NewCommandHandler(spy, newCounter,
		func(ctx context.Context, c *counter, cmd increment) error {
			// Decision: nothing to do.
			return nil
		},
	)

	result, err := handler(context.Background(), increment{ID: "c-1", By: 1})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.NextExpectedVersion != 0 {
		t.Errorf("NextExpectedVersion = %d, want 0", result.NextExpectedVersion)
	}
	if spy.AppendCalls != 0 {
		t.Errorf("no events recorded means no append, got %d calls", spy.AppendCalls)
	}
}

func TestCommandHandler_LoadErrorIsPermanent(t *testing.T) {
	boom := errors.New("db read failure")
	spy := fixtures.NewStoreSpy().FailOnLoad(boom)
	handler := newIncrementHandler(spy, es.WithRetryStrategy(backoff.NewConstantBackOff(0)))

	_, err := handler(context.Background(), increment{ID: "c-1", By: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected load error to surface, got %v", err)
	}
	if spy.LoadCalls != 1 {
		t.Errorf("load errors are not retryable, got %d load calls", spy.LoadCalls)
	}
}

func TestCommandHandler_ConflictNotRetriedByDefault(t *testing.T) {
	spy := fixtures.NewStoreSpy().ConflictOnce()
	handler := newIncrementHandler(spy)

	_, err := handler(context.Background(), increment{ID: "c-1", By: 1})

	var conflict *es.ConcurrencyError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConcurrencyError, got %v", err)
	}
	if spy.AppendCalls != 1 {
		t.Errorf("default strategy must not retry, got %d append calls", spy.AppendCalls)
	}
}

func TestCommandHandler_ConflictRetriedWithStrategy(t *testing.T) {
	spy := fixtures.NewStoreSpy().ConflictOnce()
	handler := newIncrementHandler(spy,
		es.WithRetryStrategy(backoff.WithMaxRetries(backoff.NewConstantBackOff(0), 3)),
	)

	result, err := handler(context.Background(), increment{ID: "c-1", By: 1})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if spy.AppendCalls != 2 {
		t.Errorf("expected 2 append attempts, got %d", spy.AppendCalls)
	}
	if result.NextExpectedVersion != 1 {
		t.Errorf("NextExpectedVersion = %d, want 1", result.NextExpectedVersion)
	}

	loaded, _ := spy.Load(context.Background(), result.Stream)
	if len(loaded) != 1 {
		t.Errorf("retried command must persist its events exactly once, got %d", len(loaded))
	}
}

func TestCommandHandler_MetadataExtractorEnrichesEnvelopes(t *testing.T) {
	spy := fixtures.NewStoreSpy()
	handler := newIncrementHandler(spy,
		es.WithMetadataExtractor(func(ctx context.Context) map[string]any {
			return map[string]any{"requestId": "req-42"}
		}),
	)

	if _, err := handler(context.Background(), increment{ID: "c-1", By: 1}); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if got := spy.LastAppendEvents[0].Metadata["requestId"]; got != "req-42" {
		t.Errorf("metadata requestId = %v, want req-42", got)
	}
}
