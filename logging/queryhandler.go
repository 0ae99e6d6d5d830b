package logging

import (
	"context"
	"reflect"

	"github.com/sirupsen/logrus"

	cqrs "github.com/devbanana/weight-log-api-sub000"
)

type queryHandlerLogger[T cqrs.Query, R any] struct {
	logger *logrus.Entry
	next   cqrs.QueryHandler[T, R]
}

func (q *queryHandlerLogger[T, R]) HandleQuery(ctx context.Context, qry T) (R, error) {
	qryType := reflect.TypeOf(qry).String()
	q.logger.Infof("Query: %s", qryType)

	result, err := q.next.HandleQuery(ctx, qry)
	if err != nil {
		q.logger.Errorf("Query failed: %s: %v", qryType, err)
	}

	return result, err
}

// WithQueryLogging wraps a QueryHandler with logging functionality.
// It logs the query type before execution, and logs errors if the query fails.
func WithQueryLogging[T cqrs.Query, R any](logger *logrus.Entry, next cqrs.QueryHandler[T, R]) cqrs.QueryHandler[T, R] {
	return &queryHandlerLogger[T, R]{
		logger: logger,
		next:   next,
	}
}
