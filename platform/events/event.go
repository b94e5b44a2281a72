// Package events carries the in-process domain events that connect the
// conversation pipeline to its downstream listeners. The pipeline publishes
// facts (a message landed, an outcome resolved) and subscribers such as the
// calibration engine react without the publisher knowing about them.
package events

import (
	"context"
	"time"
)

// Event is anything that can be put on the bus. EventName doubles as the
// subscription key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// Bus publishes domain events to registered handlers.
type Bus interface {
	// Publish fans the event out asynchronously. Handler failures are the
	// bus's problem, not the publisher's.
	Publish(ctx context.Context, event Event)

	// PublishSync runs every handler inline and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under the event's EventName.
	Subscribe(eventName string, handler Handler)
}

// Handler consumes events of one subscribed type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// BaseEvent supplies the timestamp every concrete event embeds.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}
