// Package eventbus provides typed publish/subscribe channels with deferred
// subscription changes.
package eventbus

import "sync"

// Publisher publishes messages of one type
type Publisher[T any] interface {
	Publish(msg T)
}

// Subscriber registers handlers for messages of one type
type Subscriber[T any] interface {
	Subscribe(handler func(T)) *Subscription
}

// Channel delivers each published message to every current subscriber.
// Subscribe and Unsubscribe calls made while a dispatch is running are
// queued and take effect once the outermost dispatch returns.
type Channel[T any] struct {
	mu          sync.Mutex
	handlers    []*entry[T]
	pending     []change[T]
	dispatching int
	disposed    bool
}

type entry[T any] struct {
	handler func(T)
}

type change[T any] struct {
	e   *entry[T]
	add bool
}

var (
	_ Publisher[struct{}]  = (*Channel[struct{}])(nil)
	_ Subscriber[struct{}] = (*Channel[struct{}])(nil)
)

// NewChannel creates an empty channel
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{}
}

// Subscribe adds handler and returns the handle that removes it
func (c *Channel[T]) Subscribe(handler func(T)) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return &Subscription{}
	}

	e := &entry[T]{handler: handler}
	c.apply(change[T]{e: e, add: true})
	return &Subscription{unsubscribe: func() { c.unsubscribe(e) }}
}

func (c *Channel[T]) unsubscribe(e *entry[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	c.apply(change[T]{e: e})
}

// apply runs a change now or queues it behind the running dispatch; mu must be held
func (c *Channel[T]) apply(ch change[T]) {
	if c.dispatching > 0 {
		c.pending = append(c.pending, ch)
		return
	}
	c.commit(ch)
}

func (c *Channel[T]) commit(ch change[T]) {
	if ch.add {
		c.handlers = append(c.handlers, ch.e)
		return
	}
	for i, e := range c.handlers {
		if e == ch.e {
			c.handlers = append(c.handlers[:i:i], c.handlers[i+1:]...)
			return
		}
	}
}

// Publish calls every subscriber with msg
func (c *Channel[T]) Publish(msg T) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	handlers := c.handlers
	c.dispatching++
	c.mu.Unlock()

	defer c.endDispatch()

	for _, e := range handlers {
		e.handler(msg)
	}
}

func (c *Channel[T]) endDispatch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dispatching--
	if c.dispatching > 0 {
		return
	}
	for _, ch := range c.pending {
		c.commit(ch)
	}
	c.pending = nil
}

// Len returns the number of committed subscribers
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

// Dispose drops all subscribers; later publishes are ignored
func (c *Channel[T]) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.handlers = nil
	c.pending = nil
}

// Subscription removes its handler when unsubscribed. Safe to call more than once.
type Subscription struct {
	once        sync.Once
	unsubscribe func()
}

// Unsubscribe removes the handler
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
}

// Group collects subscriptions so a controller can release them together
type Group struct {
	mu   sync.Mutex
	subs []*Subscription
}

// Add tracks s
func (g *Group) Add(s ...*Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs = append(g.subs, s...)
}

// Len returns the number of tracked subscriptions
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// UnsubscribeAll releases every tracked subscription. Idempotent.
func (g *Group) UnsubscribeAll() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}
