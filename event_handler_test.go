package eventsourcing

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

var _ Event = CartCreated{}
var _ Event = ItemAdded{}
var _ Event = UnhandledEvent{}

type CartCreated struct {
	ID string
}

func (c CartCreated) EventType() string   { return "CartCreated" }
func (c CartCreated) AggregateID() string { return c.ID }

type ItemAdded struct {
	ID string
}

func (i ItemAdded) AggregateID() string { return i.ID }
func (i ItemAdded) EventType() string   { return "ItemAdded" }

type UnhandledEvent struct{}

func (o UnhandledEvent) AggregateID() string { return "" }
func (o UnhandledEvent) EventType() string   { return "UnhandledEvent" }

// --- Tests ---

type Projector struct{}

func (p Projector) OnItemAdded(ctx context.Context, ev ItemAdded) error     { return nil }
func (p Projector) OnCartCreated(ctx context.Context, ev CartCreated) error { return nil }
func (p Projector) OnEvent(ctx context.Context, ev Event) error             { return nil }

func TestEventNameExtraction(t *testing.T) {
	p := Projector{}

	h := OnEvent(p.OnCartCreated)

	u, ok := h.(interface{ EventName() string })
	if !ok {
		panic(fmt.Errorf("handler %T does not have a function `EventName()`", h))
	}

	// The routing name is the wire name, not the Go type name.
	if u.EventName() != "CartCreated" {
		t.Errorf("EventName() = %q, want %q", u.EventName(), "CartCreated")
	}
}

func TestTypedEventHandler_Handle_CorrectType(t *testing.T) {
	var called bool
	handler := OnEvent(func(ctx context.Context, ev CartCreated) error {
		called = true
		return nil
	})

	err := handler.Handle(context.Background(), CartCreated{ID: "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("Handler should have been called")
	}
}

func TestTypedEventHandler_Handle_WrongType(t *testing.T) {
	handler := OnEvent(func(ctx context.Context, ev CartCreated) error {
		t.Fail() // should not be called
		return nil
	})

	var skipped *ErrSkippedEvent

	err := handler.Handle(context.Background(), ItemAdded{ID: "xyz"})
	if !errors.As(err, &skipped) {
		t.Fatalf("expected ErrSkippedEvent, got %v", err)
	}
}

func TestEventGroupProcessor_RoutesByWireName(t *testing.T) {
	var gotCart, gotItem bool

	group := NewEventGroupProcessor(
		OnEvent(func(ctx context.Context, ev CartCreated) error {
			gotCart = true
			return nil
		}),
		OnEvent(func(ctx context.Context, ev ItemAdded) error {
			gotItem = true
			return nil
		}),
	)

	if err := group.Handle(context.Background(), CartCreated{ID: "abc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := group.Handle(context.Background(), ItemAdded{ID: "abc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotCart || !gotItem {
		t.Errorf("expected both handlers invoked, cart=%v item=%v", gotCart, gotItem)
	}
}

func TestEventGroupProcessor_SkipsUnknownEvents(t *testing.T) {
	group := NewEventGroupProcessor(
		OnEvent(func(ctx context.Context, ev CartCreated) error { return nil }),
	)

	var skipped *ErrSkippedEvent
	err := group.Handle(context.Background(), UnhandledEvent{})
	if !errors.As(err, &skipped) {
		t.Fatalf("expected ErrSkippedEvent for unregistered type, got %v", err)
	}
}

func TestEventGroupProcessor_DuplicateHandlerPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on duplicate handler registration")
		}
	}()

	NewEventGroupProcessor(
		OnEvent(func(ctx context.Context, ev CartCreated) error { return nil }),
		OnEvent(func(ctx context.Context, ev CartCreated) error { return nil }),
	)
}

func TestEventGroupProcessor_StreamFilter(t *testing.T) {
	group := NewEventGroupProcessor(
		OnEvent(func(ctx context.Context, ev ItemAdded) error { return nil }),
		OnEvent(func(ctx context.Context, ev CartCreated) error { return nil }),
	)

	want := []string{"CartCreated", "ItemAdded"}
	if got := group.StreamFilter(); !reflect.DeepEqual(got, want) {
		t.Errorf("StreamFilter() = %v, want %v", got, want)
	}
}
