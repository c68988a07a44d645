package notify

import (
	"context"
	"sync"
)

// Local is an in-process Notifier for single-node deployments and tests.
type Local struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(Event)
}

var _ Notifier = (*Local)(nil)

func NewLocal() *Local {
	return &Local{handlers: make(map[int]func(Event))}
}

func (l *Local) Publish(_ context.Context, ev Event) error {
	l.mu.Lock()
	handlers := make([]func(Event), 0, len(l.handlers))
	for _, h := range l.handlers {
		handlers = append(handlers, h)
	}
	l.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
	return nil
}

func (l *Local) Subscribe(handler func(Event)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.handlers[id] = handler
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.handlers, id)
		l.mu.Unlock()
	}
}
