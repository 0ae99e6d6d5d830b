// Package postgres provides a PostgreSQL-backed event store.
//
// Each event is one row keyed by (aggregate_id, aggregate_type, version)
// with a unique constraint on that triple. The constraint is the storage
// layer's concurrency backstop: a second writer racing to the same version
// fails at the database even if the in-transaction check passed.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	cqrs "github.com/devbanana/weight-log-api-sub000"
)

const uniqueViolationCode = "23505"

type Store struct {
	pool   *pgxpool.Pool
	codec  cqrs.EventCodec
	table  string
	tracer trace.Tracer
}

var _ cqrs.EventStore = (*Store)(nil)

// Option customizes a Store.
type Option func(*Store)

// WithTable overrides the default "events" table name.
func WithTable(name string) Option {
	return func(s *Store) { s.table = name }
}

// NewStore creates a Postgres-backed eventstore. The codec must know every
// event type the application appends; decoding fails otherwise.
func NewStore(pool *pgxpool.Pool, codec cqrs.EventCodec, opts ...Option) *Store {
	s := &Store{
		pool:   pool,
		codec:  codec,
		table:  "events",
		tracer: otel.Tracer("eventstore-postgres"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSchema creates the events table and its uniqueness constraint if
// they do not exist yet.
func (s *Store) CreateSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			global_position BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			aggregate_id    TEXT        NOT NULL,
			aggregate_type  TEXT        NOT NULL,
			version         BIGINT      NOT NULL,
			event_id        UUID        NOT NULL,
			event_type      TEXT        NOT NULL,
			event_data      JSONB       NOT NULL,
			metadata        JSONB       NOT NULL DEFAULT '{}'::jsonb,
			occurred_at     TIMESTAMPTZ NOT NULL,
			CONSTRAINT %[1]s_stream_version_key UNIQUE (aggregate_id, aggregate_type, version)
		)`, s.table)

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return cqrs.WrapEventStoreError(fmt.Errorf("create schema for %s: %w", s.table, err))
	}
	return nil
}

func (s *Store) Append(ctx context.Context, stream cqrs.StreamID, events []cqrs.Envelope, expectedVersion uint64) error {
	ctx, span := s.tracer.Start(ctx, "eventstore.append",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			cqrs.AttrStreamID.String(stream.String()),
			cqrs.AttrEventCount.Int(len(events)),
		),
	)
	defer span.End()

	if len(events) == 0 {
		return fmt.Errorf("append to stream %s: %w", stream, cqrs.ErrEmptyBatch)
	}
	for i := range events {
		if events[i].Event.AggregateID() != stream.AggregateID {
			return fmt.Errorf("append to stream %s: event %d has aggregate id %q: %w",
				stream, i, events[i].Event.AggregateID(), cqrs.ErrMixedAggregateIDs)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return cqrs.WrapEventStoreError(err)
	}
	defer tx.Rollback(ctx)

	current, err := s.versionIn(ctx, tx, stream)
	if err != nil {
		return err
	}

	if current != expectedVersion {
		conflict := &cqrs.ConcurrencyError{Stream: stream, Expected: expectedVersion, Actual: current}
		span.RecordError(conflict)
		span.SetStatus(codes.Error, conflict.Error())
		return conflict
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (
			aggregate_id, aggregate_type, version,
			event_id, event_type, event_data, metadata, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table)

	batch := &pgx.Batch{}
	for i := range events {
		envelope := &events[i]

		eventType, data, err := s.codec.Encode(envelope.Event)
		if err != nil {
			return cqrs.WrapEventStoreError(err)
		}

		metadata := envelope.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}

		batch.Queue(insert,
			stream.AggregateID,
			stream.AggregateType,
			expectedVersion+uint64(i)+1,
			envelope.EventID.String(),
			eventType,
			data,
			metadata,
			envelope.OccurredAt.UTC(),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range events {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return s.appendError(ctx, stream, expectedVersion, err)
		}
	}
	if err := results.Close(); err != nil {
		return s.appendError(ctx, stream, expectedVersion, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return s.appendError(ctx, stream, expectedVersion, err)
	}

	cqrs.EventsAppended.Add(ctx, int64(len(events)))
	return nil
}

// appendError maps a unique constraint violation (a racing writer took
// the version first) onto ConcurrencyError; everything else is a fatal
// storage fault.
func (s *Store) appendError(ctx context.Context, stream cqrs.StreamID, expectedVersion uint64, err error) error {
	if !isUniqueViolation(err) {
		return cqrs.WrapEventStoreError(err)
	}

	actual, verr := s.Version(ctx, stream)
	if verr != nil {
		actual = expectedVersion
	}
	return &cqrs.ConcurrencyError{Stream: stream, Expected: expectedVersion, Actual: actual}
}

func (s *Store) Load(ctx context.Context, stream cqrs.StreamID) ([]cqrs.Envelope, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.load",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(cqrs.AttrStreamID.String(stream.String())),
	)
	defer span.End()

	query := fmt.Sprintf(`
		SELECT version, event_id, event_type, event_data, metadata, occurred_at
		FROM %s
		WHERE aggregate_id = $1 AND aggregate_type = $2
		ORDER BY version`, s.table)

	rows, err := s.pool.Query(ctx, query, stream.AggregateID, stream.AggregateType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, cqrs.WrapEventStoreError(err)
	}
	defer rows.Close()

	var out []cqrs.Envelope
	for rows.Next() {
		var (
			version    int64
			eventID    string
			eventType  string
			data       []byte
			metadata   map[string]any
			occurredAt time.Time
		)
		if err := rows.Scan(&version, &eventID, &eventType, &data, &metadata, &occurredAt); err != nil {
			return nil, cqrs.WrapEventStoreError(err)
		}

		event, err := s.codec.Decode(eventType, data)
		if err != nil {
			return nil, cqrs.WrapEventStoreError(err)
		}

		id, err := uuid.Parse(eventID)
		if err != nil {
			return nil, cqrs.WrapEventStoreError(err)
		}

		out = append(out, cqrs.Envelope{
			EventID:    id,
			Stream:     stream,
			Metadata:   metadata,
			Event:      event,
			Version:    uint64(version),
			OccurredAt: occurredAt.UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, cqrs.WrapEventStoreError(err)
	}

	cqrs.EventsLoaded.Add(ctx, int64(len(out)))
	return out, nil
}

func (s *Store) Version(ctx context.Context, stream cqrs.StreamID) (uint64, error) {
	return s.versionIn(ctx, s.pool, stream)
}

// querier covers both pool and transaction handles.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) versionIn(ctx context.Context, q querier, stream cqrs.StreamID) (uint64, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(version), 0)
		FROM %s
		WHERE aggregate_id = $1 AND aggregate_type = $2`, s.table)

	var version int64
	if err := q.QueryRow(ctx, query, stream.AggregateID, stream.AggregateType).Scan(&version); err != nil {
		return 0, cqrs.WrapEventStoreError(err)
	}
	return uint64(version), nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
