package logging

import (
	"context"

	"github.com/sirupsen/logrus"

	cqrs "github.com/devbanana/weight-log-api-sub000"
)

// WithEventLogging wraps an EventHandler so every delivered event is logged
// with its stream position, taken from the envelope context set by the
// dispatching store.
func WithEventLogging(logger *logrus.Entry, next cqrs.EventHandler) cqrs.EventHandler {
	return cqrs.NewEventHandlerFunc(func(ctx context.Context, event cqrs.Event) error {
		l := logger.WithFields(logrus.Fields{
			"stream":      cqrs.StreamIDFromContext(ctx),
			"aggregateId": cqrs.AggregateIDFromContext(ctx),
			"version":     cqrs.VersionFromContext(ctx),
			"eventType":   event.EventType(),
		})

		l.Debug("event processing started")

		err := next.Handle(ctx, event)

		if err != nil {
			l.WithError(err).Error("error processing event")
		} else {
			l.Debug("event processed successfully")
		}

		return err
	})
}
