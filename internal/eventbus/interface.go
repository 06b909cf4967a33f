package eventbus

import (
	"context"

	"go-sim-core/internal/core"
)

// Publisher announces finished actions.
type Publisher interface {
	Publish(ctx context.Context, topic string, event core.Event) error
}

// Bus adds subscriptions to Publisher.
type Bus interface {
	Publisher
	Subscribe(ctx context.Context, topic string) (<-chan core.Event, error)
	SubscribePattern(ctx context.Context, pattern string) (<-chan core.Event, error)
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}
