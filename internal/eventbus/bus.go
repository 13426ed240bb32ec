package eventbus

import "sync"

// defaultBuffer is the per-subscriber channel capacity when none is given.
const defaultBuffer = 8

// Bus is a type-safe publish/subscribe bus for events of type T. Delivery is
// non-blocking: a subscriber that stops draining its channel loses events
// instead of stalling publishers. The arbiter and distributor rely on this to
// never block on a slow actor.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   []chan T
	closed bool
}

// New creates a new Bus.
func New[T any]() *Bus[T] { return &Bus[T]{} }

// Publish sends the event to all subscribers, dropping it for any subscriber
// whose buffer is full.
func (b *Bus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a subscriber with the default buffer size.
func (b *Bus[T]) Subscribe() <-chan T { return b.SubscribeBuffered(defaultBuffer) }

// SubscribeBuffered registers a subscriber whose channel holds up to size
// undelivered events. A size below 1 falls back to the default.
func (b *Bus[T]) SubscribeBuffered(size int) <-chan T {
	if size < 1 {
		size = defaultBuffer
	}
	ch := make(chan T, size)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes the bus and all subscriber channels.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.mu.Unlock()
}
