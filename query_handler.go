package eventsourcing

import (
	"context"
)

// Query is a marker constraint for query types. Queries are plain values;
// routing is by concrete type, so no methods are required.
type Query = any

// QueryHandler represents a handler for a specific query type T producing
// a result of type R. It allows generic, type-safe registration and
// execution of read-side logic against projections.
//
// Example Usage:
//
//	type UserIDByEmail struct { Email string }
//
//	handler := NewQueryHandlerFunc(func(ctx context.Context, q UserIDByEmail) (string, error) {
//	    return "user-1", nil
//	})
//
//	var _ QueryHandler[UserIDByEmail, string] = handler
type QueryHandler[T Query, R any] interface {
	HandleQuery(ctx context.Context, qry T) (R, error)
}

// queryHandlerFunc is a helper type to allow ordinary functions to
// implement QueryHandler[T,R].
type queryHandlerFunc[T Query, R any] func(ctx context.Context, qry T) (R, error)

// HandleQuery calls the underlying function.
func (f queryHandlerFunc[T, R]) HandleQuery(ctx context.Context, qry T) (R, error) {
	return f(ctx, qry)
}

// NewQueryHandlerFunc creates a QueryHandler from a function.
func NewQueryHandlerFunc[T Query, R any](fn func(ctx context.Context, qry T) (R, error)) QueryHandler[T, R] {
	return queryHandlerFunc[T, R](fn)
}
