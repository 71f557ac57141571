package bus

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Handler receives a published payload. A returned error is reported and
// does not affect other handlers.
type Handler[T any] func(payload T) error

// ErrorReporter is notified whenever a handler fails or panics.
type ErrorReporter func(name string, err error)

// Subscription identifies a registered handler. Go funcs are not comparable,
// so the subscription token is what Unsubscribe matches on.
type Subscription struct {
	Name string
	id   uint64
}

type entry[T any] struct {
	id      uint64
	handler Handler[T]
}

// Bus is a synchronous named pub/sub used to decouple the connection
// manager from its consumers.
type Bus[T any] struct {
	mu       sync.RWMutex
	handlers map[string][]entry[T]
	nextID   uint64
	reporter ErrorReporter
}

// Option configures a Bus.
type Option[T any] func(*Bus[T])

// WithErrorReporter registers a callback for handler failures.
func WithErrorReporter[T any](reporter ErrorReporter) Option[T] {
	return func(b *Bus[T]) {
		b.reporter = reporter
	}
}

// New creates an empty bus.
func New[T any](opts ...Option[T]) *Bus[T] {
	b := &Bus[T]{
		handlers: make(map[string][]entry[T]),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe appends handler to the list for name.
func (b *Bus[T]) Subscribe(name string, handler Handler[T]) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[name] = append(b.handlers[name], entry[T]{id: b.nextID, handler: handler})

	return Subscription{Name: name, id: b.nextID}
}

// Unsubscribe removes the handler registered under sub. Removing an unknown
// subscription is a no-op.
func (b *Bus[T]) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[sub.Name]
	for i, e := range entries {
		if e.id != sub.id {
			continue
		}
		// copy so in-flight snapshots keep their view
		next := make([]entry[T], 0, len(entries)-1)
		next = append(next, entries[:i]...)
		next = append(next, entries[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, sub.Name)
		} else {
			b.handlers[sub.Name] = next
		}
		return
	}
}

// Publish invokes every handler registered for name, in registration order,
// on the caller's goroutine. Handlers added or removed during dispatch do not
// affect this call.
func (b *Bus[T]) Publish(name string, payload T) {
	b.mu.RLock()
	snapshot := b.handlers[name]
	b.mu.RUnlock()

	for _, e := range snapshot {
		b.invoke(name, e.handler, payload)
	}
}

// HandlerCount returns the number of handlers registered for name.
func (b *Bus[T]) HandlerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

func (b *Bus[T]) invoke(name string, handler Handler[T], payload T) {
	defer func() {
		if r := recover(); r != nil {
			b.report(name, fmt.Errorf("handler panic: %v", r))
		}
	}()

	if err := handler(payload); err != nil {
		b.report(name, err)
	}
}

func (b *Bus[T]) report(name string, err error) {
	log.Error().Err(err).Str("event", name).Msg("event handler failed")
	if b.reporter != nil {
		b.reporter(name, err)
	}
}
