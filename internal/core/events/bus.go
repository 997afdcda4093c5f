package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Payload() interface{}  { return e.Data }

type Handler func(ctx context.Context, event Event) error

type Option func(*EventBus)

// WithHandlerTimeout bounds every handler call. Zero means no bound.
func WithHandlerTimeout(d time.Duration) Option {
	return func(eb *EventBus) { eb.handlerTimeout = d }
}

// EventBus fans events out to in-process subscribers. Publish runs handlers
// in the background, detached from the publisher's cancellation; Wait blocks
// until those handlers are done. A handler panic is logged and contained.
type EventBus struct {
	mu             sync.RWMutex
	handlers       map[string][]Handler
	inflight       sync.WaitGroup
	handlerTimeout time.Duration
	logger         *slog.Logger
}

func NewEventBus(logger *slog.Logger, opts ...Option) *EventBus {
	eb := &EventBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(eb)
	}
	return eb
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Info("event handler registered",
		"event_type", eventType,
		"total_handlers", len(eb.handlers[eventType]))
}

func (eb *EventBus) subscribers(eventType string) []Handler {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return append([]Handler(nil), eb.handlers[eventType]...)
}

// Publish starts every subscriber of the event's type and returns at once.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	handlers := eb.subscribers(event.EventType())
	if len(handlers) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}

	eb.logger.InfoContext(ctx, "publishing event",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"handlers_count", len(handlers))

	// request contexts end with the response; handlers must outlive them
	detached := context.WithoutCancel(ctx)

	eb.inflight.Add(len(handlers))
	for _, h := range handlers {
		go func(h Handler) {
			defer eb.inflight.Done()
			if err := eb.run(detached, h, event); err != nil {
				eb.logger.ErrorContext(detached, "event handler failed",
					"event_type", event.EventType(),
					"event_id", event.EventID(),
					"error", err)
			}
		}(h)
	}
	return nil
}

// PublishSync runs subscribers in order on the caller's goroutine and stops
// at the first failure.
func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	for _, h := range eb.subscribers(event.EventType()) {
		if err := eb.run(ctx, h, event); err != nil {
			eb.logger.ErrorContext(ctx, "event handler failed",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"error", err)
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

func (eb *EventBus) run(ctx context.Context, h Handler, event Event) (err error) {
	if eb.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, eb.handlerTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, event)
}

// Wait blocks until every handler started by Publish has returned or ctx ends.
func (eb *EventBus) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		eb.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
