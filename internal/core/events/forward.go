package events

import (
	"context"
	"log/slog"
)

type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// ForwardTo returns a handler that republishes events to a broker, keyed by
// event type.
func ForwardTo(publisher JSONPublisher, logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		if err := publisher.PublishJSON(ctx, event.EventType(), event); err != nil {
			return err
		}
		logger.Info("event forwarded to broker",
			"event_type", event.EventType(),
			"event_id", event.EventID())
		return nil
	}
}

// LogHandler records every event it receives.
func LogHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		logger.InfoContext(ctx, "event received",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"occurred_at", event.OccurredAt())
		return nil
	}
}
