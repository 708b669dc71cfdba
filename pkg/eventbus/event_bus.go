// Package eventbus publishes and consumes policy execution lifecycle
// events over a watermill-backed message stream.
package eventbus

import (
	"context"

	"github.com/ruleflow-io/ruleflow/pkg/events"
)

// EventHandler processes one decoded event.
type EventHandler func(ctx context.Context, event any) error

// EventBus publishes lifecycle events and dispatches subscribed handlers.
// Publishing is best-effort from the executor's perspective: a failed
// publish is logged by the caller and never aborts a policy run.
type EventBus interface {
	Publish(ctx context.Context, key string, event events.Event) error
	Subscribe(ctx context.Context) error
	Handle(eventType events.EventType, handler EventHandler)
	Close() error
	GenerateID() string
}
