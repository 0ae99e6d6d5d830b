package eventsourcing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// QueryBus acts as a central registry for query handlers. It stores
// handlers keyed by their query and result types, allowing multiple query
// types to be registered in a single bus.
//
// Handlers are executed via a typed GenericQueryGateway.
//
// Example Usage:
//
//	bus := NewQueryBus()
//	RegisterQueryHandler(bus, NewQueryHandlerFunc(func(ctx context.Context, q MyQuery) (*MyResult, error) {
//	    return &MyResult{Value: 42}, nil
//	}))
type QueryBus struct {
	mu       sync.RWMutex
	handlers map[string]any
}

// NewQueryBus creates a new QueryBus instance.
func NewQueryBus() *QueryBus {
	return &QueryBus{
		handlers: make(map[string]any),
	}
}

// RegisterQueryHandler registers a QueryHandler for a specific query and
// result type on the provided QueryBus. The storage key is generated from
// the types of T and R, so a bus can serve many query shapes at once.
// Panics if the same (query, result) pair is registered twice.
func RegisterQueryHandler[T Query, R any](bus *QueryBus, handler QueryHandler[T, R]) {
	key := fmt.Sprintf("%T|%T", *new(T), *new(R))

	// Wrap the handler with tracing and metrics before storing it.
	wrapped := NewQueryHandlerFunc(func(ctx context.Context, qry T) (R, error) {
		queryType := fmt.Sprintf("%T", qry)

		ctx, span := tracer.Start(ctx, fmt.Sprintf("query.handle %s", queryType),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(AttrQueryType.String(queryType)),
		)
		defer span.End()

		startTime := time.Now()
		result, err := handler.HandleQuery(ctx, qry)

		QueriesDuration.Record(ctx, float64(time.Since(startTime).Milliseconds()),
			metric.WithAttributes(AttrQueryType.String(queryType)),
		)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}

		QueriesHandled.Add(ctx, 1, metric.WithAttributes(AttrQueryType.String(queryType)))
		span.SetStatus(codes.Ok, "")
		return result, nil
	})

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if _, exists := bus.handlers[key]; exists {
		panic(fmt.Sprintf("query handler already registered for %s", key))
	}
	bus.handlers[key] = wrapped
}
