// Package events delivers domain events drained from meals to in-process
// subscribers, and relays events left pending in the outbox.
package events

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-recipes-backend/internal/domain/seedwork"
)

// Handler receives one event. Handlers run concurrently and must be safe for
// concurrent use.
type Handler func(ctx context.Context, ev seedwork.Event) error

// Bus fans events out to subscribers. The zero value is not usable; call NewBus.
type Bus struct {
	mu       sync.RWMutex
	byName   map[string][]Handler
	wildcard []Handler
	limit    int
}

// Option configures a Bus.
type Option func(*Bus)

// WithConcurrency caps the number of handlers running at once per Publish.
// Values <= 0 mean no limit.
func WithConcurrency(n int) Option {
	return func(b *Bus) { b.limit = n }
}

// NewBus returns an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{byName: make(map[string][]Handler), limit: 8}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Subscribe registers h for events named name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byName[name] = append(b.byName[name], h)
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, h)
}

func (b *Bus) handlersFor(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, 0, len(b.byName[name])+len(b.wildcard))
	out = append(out, b.byName[name]...)
	return append(out, b.wildcard...)
}

// Publish delivers every event to its subscribers and waits for them. The
// first handler error cancels the shared context and is returned.
func (b *Bus) Publish(ctx context.Context, events []seedwork.Event) error {
	if len(events) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	if b.limit > 0 {
		g.SetLimit(b.limit)
	}
	for _, ev := range events {
		ev := ev
		for _, h := range b.handlersFor(ev.EventName()) {
			h := h
			g.Go(func() error {
				if err := h(gctx, ev); err != nil {
					return fmt.Errorf("%s %s: %w", ev.EventName(), ev.EventID(), err)
				}
				return nil
			})
		}
	}
	return g.Wait()
}
