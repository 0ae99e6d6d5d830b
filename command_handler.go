package eventsourcing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CommandHandler defines a function type for handling commands of a
// specific type. A handler loads the aggregate, executes the business
// logic, and persists whatever events that logic produced.
type CommandHandler[C Command] func(ctx context.Context, command C) (AppendResult, error)

// CommandHandlerOption defines a function type that modifies handlerOptions.
type CommandHandlerOption func(configuration *handlerOptions)

// NewCommandHandler returns a generic command handler for any aggregate type.
//
// It provides a reusable pattern for handling commands in an event-sourced
// system by performing the following steps:
//  1. Load the event history for the command's aggregate id.
//  2. Reconstitute the aggregate from that history.
//  3. Execute the behavior, which validates against derived state and
//     buffers new events on the aggregate.
//  4. Append the uncommitted events under the version observed at load
//     time, then release the aggregate's buffer.
//
// A *ConcurrencyError from the append restarts the whole cycle according
// to the configured retry strategy (default: no retries; conflict
// handling is the caller's decision). Business rule violations and storage
// faults are never retried.
//
// Parameters:
//   - store: the EventStore used to load and persist events. Compose with
//     NewDispatchingStore to notify listeners after commit.
//   - newAggregate: factory producing an empty aggregate for an id.
//   - execute: the behavior to run against the reconstituted aggregate.
//   - opts: optional CommandHandlerOption values, such as WithRetryStrategy
//     or WithMetadataExtractor.
func NewCommandHandler[A Aggregate, C Command](
	store EventStore,
	newAggregate func(id string) A,
	execute func(ctx context.Context, agg A, command C) error,
	opts ...CommandHandlerOption,
) CommandHandler[C] {
	var zero C
	commandType := fmt.Sprintf("%T", zero)

	return func(ctx context.Context, command C) (AppendResult, error) {
		cfg := &handlerOptions{
			RetryStrategy: &backoff.StopBackOff{},
			MetadataFuncs: []func(ctx context.Context) map[string]any{},
		}
		for _, o := range opts {
			o(cfg)
		}

		ctx, span := tracer.Start(ctx, fmt.Sprintf("command.handle %s", commandType),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				AttrCommandType.String(commandType),
				AttrAggregateID.String(command.AggregateID()),
			),
		)
		defer span.End()

		startTime := time.Now()

		result, err := backoff.RetryWithData(func() (AppendResult, error) {
			agg := newAggregate(command.AggregateID())
			stream := StreamID{
				AggregateID:   agg.EntityID(),
				AggregateType: agg.AggregateType(),
			}

			history, err := store.Load(ctx, stream)
			if err != nil {
				return AppendResult{Stream: stream},
					backoff.Permanent(fmt.Errorf("handle command %T for stream %s: load failed: %w", command, stream, err))
			}

			agg = Reconstitute(agg, history)
			expectedVersion := agg.AggregateVersion()

			if err := execute(ctx, agg, command); err != nil {
				// Business rule violation: nothing was buffered, nothing is appended.
				return AppendResult{Stream: stream, NextExpectedVersion: expectedVersion},
					backoff.Permanent(err)
			}

			events := agg.UncommittedEvents()
			if len(events) == 0 {
				return AppendResult{Stream: stream, NextExpectedVersion: expectedVersion}, nil
			}

			for _, fn := range cfg.MetadataFuncs {
				metadata := fn(ctx)
				for i := range events {
					for k, v := range metadata {
						events[i].Metadata[k] = v
					}
				}
			}

			if err := store.Append(ctx, stream, events, expectedVersion); err != nil {
				var conflict *ConcurrencyError
				if errors.As(err, &conflict) {
					// Retryable: the next attempt reloads and re-decides.
					return AppendResult{Stream: stream, NextExpectedVersion: conflict.Actual}, err
				}
				return AppendResult{Stream: stream, NextExpectedVersion: expectedVersion},
					backoff.Permanent(fmt.Errorf("handle command %T for stream %s: append failed: %w", command, stream, err))
			}

			agg.ClearUncommittedEvents()
			agg.SetAggregateVersion(expectedVersion + uint64(len(events)))

			return AppendResult{
				Stream:              stream,
				NextExpectedVersion: expectedVersion + uint64(len(events)),
			}, nil
		}, cfg.RetryStrategy)

		CommandsDuration.Record(ctx, float64(time.Since(startTime).Milliseconds()),
			metric.WithAttributes(AttrCommandType.String(commandType)),
		)

		if err != nil {
			var conflict *ConcurrencyError
			if errors.As(err, &conflict) {
				span.AddEvent("concurrency_conflict", trace.WithAttributes(
					AttrStreamID.String(result.Stream.String()),
				))
			}
			CommandsFailed.Add(ctx, 1, metric.WithAttributes(AttrCommandType.String(commandType)))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}

		CommandsHandled.Add(ctx, 1, metric.WithAttributes(AttrCommandType.String(commandType)))
		span.SetAttributes(AttrStreamVersion.Int64(int64(result.NextExpectedVersion)))
		span.SetStatus(codes.Ok, "")
		return result, nil
	}
}

// handlerOptions defines configuration for a CommandHandler.
type handlerOptions struct {
	// RetryStrategy defines how the handler retries after a concurrency
	// conflict. If nil, no retries are performed.
	RetryStrategy backoff.BackOff

	// MetadataFuncs is a list of functions used to enrich events with
	// metadata before saving.
	MetadataFuncs []func(ctx context.Context) map[string]any
}

// WithRetryStrategy sets the retry strategy for a NewCommandHandler.
//
// The BackOff strategy controls how many times and with what delay the
// handler restarts the load-decide-append cycle after a concurrency
// conflict. Other failures are never retried.
//
// Usage:
//
//	handler := NewCommandHandler(store, newAgg, execute, WithRetryStrategy(backoff.NewExponentialBackOff()))
func WithRetryStrategy(strategy backoff.BackOff) CommandHandlerOption {
	return func(cfg *handlerOptions) { cfg.RetryStrategy = strategy }
}

// WithMetadataExtractor adds a metadata function to a NewCommandHandler.
//
// Each metadata function is called for every command handling execution and
// can inject additional key-value pairs into the event envelopes. Multiple
// extractors can be combined; they are applied in order of registration.
func WithMetadataExtractor(fn func(ctx context.Context) map[string]any) CommandHandlerOption {
	return func(h *handlerOptions) {
		h.MetadataFuncs = append(h.MetadataFuncs, fn)
	}
}
