// Package eventbus publishes action notifications over Redis pub/sub.
package eventbus

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"go-sim-core/internal/core"
)

// RedisBus implements Bus using Redis Pub/Sub.
type RedisBus struct {
	mu            sync.Mutex
	client        *redis.Client
	subscriptions map[string]*redis.PubSub
	logger        *log.Logger
}

// NewRedisBus shares client; Close does not close it.
func NewRedisBus(client *redis.Client, logger *log.Logger) *RedisBus {
	if logger == nil {
		logger = log.Default()
	}
	return &RedisBus{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
		logger:        logger,
	}
}

// Publish sends an event to a topic.
func (b *RedisBus) Publish(ctx context.Context, topic string, event core.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, topic, data).Err()
}

// forward copies decoded messages to the returned channel until ctx is done
// or the subscription is closed.
func (b *RedisBus) forward(ctx context.Context, pubsub *redis.PubSub) (<-chan core.Event, error) {
	// wait for the subscription to be confirmed so no early publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	ch := make(chan core.Event)
	msgs := pubsub.Channel()
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev core.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Println("eventbus: dropping undecodable message on", msg.Channel, err)
					continue
				}
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// Subscribe listens for events on a topic.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (<-chan core.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps := b.client.Subscribe(ctx, topic)
	ch, err := b.forward(ctx, ps)
	if err != nil {
		return nil, err
	}
	b.subscriptions[topic] = ps
	return ch, nil
}

// SubscribePattern listens for events using a glob pattern.
func (b *RedisBus) SubscribePattern(ctx context.Context, pattern string) (<-chan core.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps := b.client.PSubscribe(ctx, pattern)
	ch, err := b.forward(ctx, ps)
	if err != nil {
		return nil, err
	}
	b.subscriptions[pattern] = ps
	return ch, nil
}

// Unsubscribe stops listening on a topic or pattern.
func (b *RedisBus) Unsubscribe(ctx context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps, ok := b.subscriptions[topic]
	if !ok {
		return nil
	}
	delete(b.subscriptions, topic)
	return ps.Close()
}

// Close terminates all subscriptions.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ps := range b.subscriptions {
		_ = ps.Close()
	}
	b.subscriptions = make(map[string]*redis.PubSub)
	return nil
}
