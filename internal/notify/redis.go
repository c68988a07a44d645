package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channel = "eretzir:lobby-events"

// Redis is a Notifier backed by redis pub/sub, for multi-node deployments
// where lobby membership and the browser connection may land on different
// processes.
type Redis struct {
	client *redis.Client
	log    *zap.Logger

	mu       sync.Mutex
	nextID   int
	handlers map[int]func(Event)

	cancel context.CancelFunc
	done   chan struct{}
}

var _ Notifier = (*Redis)(nil)

func NewRedis(client *redis.Client, log *zap.Logger) (*Redis, error) {
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Redis{
		client:   client,
		log:      log,
		handlers: make(map[int]func(Event)),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	sub := client.Subscribe(ctx, channel)
	go r.receive(ctx, sub)
	return r, nil
}

func (r *Redis) receive(ctx context.Context, sub *redis.PubSub) {
	defer close(r.done)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.log.Warn("dropping malformed notify payload", zap.Error(err))
				continue
			}
			r.mu.Lock()
			handlers := make([]func(Event), 0, len(r.handlers))
			for _, h := range r.handlers {
				handlers = append(handlers, h)
			}
			r.mu.Unlock()
			for _, h := range handlers {
				h(ev)
			}
		}
	}
}

func (r *Redis) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(handler func(Event)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.handlers[id] = handler
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.handlers, id)
		r.mu.Unlock()
	}
}

// Close stops the receive loop and waits for it to drain.
func (r *Redis) Close() error {
	r.cancel()
	<-r.done
	return nil
}
