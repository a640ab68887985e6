// Package refresh holds the session-scoped invalidation token. Mutations that
// touch several aggregates bump it; every subscribed view re-fetches on change.
package refresh

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"moneymanager/internal/log"
)

// Listener is called with the new token after every change. Listeners run
// concurrently and must not call Bump themselves.
type Listener func(ctx context.Context, token uint64) error

// Publisher forwards local bumps to other processes serving the same user.
type Publisher interface {
	PublishChanged(ctx context.Context, token uint64) error
}

type subscription struct {
	name string
	fn   Listener
}

// Coordinator is one invalidation token. It lives as long as the
// authenticated session that owns it.
type Coordinator struct {
	mu        sync.Mutex
	token     uint64
	nextID    int
	subs      map[int]subscription
	publisher Publisher
	logger    *log.Logger
}

type Option func(*Coordinator)

func WithPublisher(p Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = l.WithComponent(log.ComponentRefresh) }
}

func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		subs:   make(map[int]subscription),
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current value, starting at 0.
func (c *Coordinator) Token() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Subscribe registers fn under name. The returned func removes it.
func (c *Coordinator) Subscribe(name string, fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = subscription{name: name, fn: fn}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Bump records a local ledger mutation: the token is incremented once,
// subscribers re-fetch, and the change is published if a publisher is set.
func (c *Coordinator) Bump(ctx context.Context) uint64 {
	token := c.advance(ctx)
	if c.publisher != nil {
		if err := c.publisher.PublishChanged(ctx, token); err != nil {
			c.logger.WarnContext(ctx, "Failed to publish ledger change",
				log.FieldToken, token, log.FieldError, err)
		}
	}
	return token
}

// Observe applies a change that happened elsewhere. It never publishes.
func (c *Coordinator) Observe(ctx context.Context) uint64 {
	return c.advance(ctx)
}

func (c *Coordinator) advance(ctx context.Context) uint64 {
	c.mu.Lock()
	c.token++
	token := c.token
	subs := c.snapshot()
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "Refresh token advanced",
		log.FieldToken, token, "subscribers", len(subs))
	c.notify(ctx, token, subs)
	return token
}

// snapshot returns subscribers in registration order. Caller holds mu.
func (c *Coordinator) snapshot() []subscription {
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]subscription, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.subs[id])
	}
	return out
}

// notify fans out to every subscriber and waits. A failing subscriber does
// not cancel the others; each one re-fetches independently.
func (c *Coordinator) notify(ctx context.Context, token uint64, subs []subscription) {
	var g errgroup.Group
	for _, s := range subs {
		g.Go(func() error {
			if err := s.fn(ctx, token); err != nil {
				c.logger.WarnContext(ctx, "Subscriber refresh failed",
					"subscriber", s.name, log.FieldToken, token, log.FieldError, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
