package eventsourcing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/devbanana/weight-log-api-sub000"
)

// Semantic attribute keys following OpenTelemetry conventions
const (
	// Command attributes
	AttrCommandType = attribute.Key("eventsourcing.command.type")
	AttrAggregateID = attribute.Key("eventsourcing.aggregate.id")

	// Stream attributes
	AttrStreamID      = attribute.Key("eventsourcing.stream.id")
	AttrStreamVersion = attribute.Key("eventsourcing.stream.version")

	// Event attributes
	AttrEventType  = attribute.Key("eventsourcing.event.type")
	AttrEventID    = attribute.Key("eventsourcing.event.id")
	AttrEventCount = attribute.Key("eventsourcing.events.count")

	// Query attributes
	AttrQueryType = attribute.Key("eventsourcing.query.type")

	// Error attributes
	AttrErrorType = attribute.Key("eventsourcing.error.type")

	// Operation attributes
	AttrOperation = attribute.Key("eventsourcing.operation")
)

var (
	meter  = otel.Meter(instrumentationName, metric.WithInstrumentationVersion(InstrumentationVersion))
	tracer = otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(InstrumentationVersion))

	// Command metrics
	CommandsHandled, _ = meter.Int64Counter(
		"eventsourcing.commands.handled",
		metric.WithDescription("Total number of commands handled"),
		metric.WithUnit("{command}"),
	)

	CommandsFailed, _ = meter.Int64Counter(
		"eventsourcing.commands.failed",
		metric.WithDescription("Number of failed commands"),
		metric.WithUnit("{command}"),
	)

	CommandsDuration, _ = meter.Float64Histogram(
		"eventsourcing.commands.duration",
		metric.WithDescription("Command handling duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)

	// Event store metrics
	EventsAppended, _ = meter.Int64Counter(
		"eventsourcing.events.appended",
		metric.WithDescription("Number of events appended to streams"),
		metric.WithUnit("{event}"),
	)

	EventsLoaded, _ = meter.Int64Counter(
		"eventsourcing.events.loaded",
		metric.WithDescription("Number of events loaded from streams"),
		metric.WithUnit("{event}"),
	)

	ConcurrencyConflicts, _ = meter.Int64Counter(
		"eventsourcing.concurrency.conflicts",
		metric.WithDescription("Number of optimistic concurrency conflicts"),
		metric.WithUnit("{conflict}"),
	)

	// Dispatch metrics
	EventsDispatched, _ = meter.Int64Counter(
		"eventsourcing.events.dispatched",
		metric.WithDescription("Number of events delivered to listeners after commit"),
		metric.WithUnit("{event}"),
	)

	DispatchErrors, _ = meter.Int64Counter(
		"eventsourcing.dispatch.errors",
		metric.WithDescription("Number of listener errors during dispatch"),
		metric.WithUnit("{error}"),
	)

	// Query metrics
	QueriesHandled, _ = meter.Int64Counter(
		"eventsourcing.queries.handled",
		metric.WithDescription("Total number of queries handled"),
		metric.WithUnit("{query}"),
	)

	QueriesDuration, _ = meter.Float64Histogram(
		"eventsourcing.queries.duration",
		metric.WithDescription("Query handling duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000),
	)
)
