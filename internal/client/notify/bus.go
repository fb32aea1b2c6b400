// Package notify fans out "state changed" signals to UI listeners.
package notify

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/soullink/internal/logging"
)

type listener struct {
	id uint64
	fn func()
}

// Bus dispatches synchronously, in subscription order, on the goroutine
// that calls Notify. Listeners may subscribe or unsubscribe from inside a
// callback; such changes apply from the next Notify. A panicking listener is
// logged and skipped.
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []listener
	logger    logging.Logger
}

func NewBus(logger logging.Logger) *Bus {
	return &Bus{logger: logging.OrNop(logger)}
}

// Subscribe registers fn and returns a function that removes it. Calling
// the returned function more than once is harmless.
func (b *Bus) Subscribe(fn func()) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, listener{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

func (b *Bus) Notify() {
	b.mu.Lock()
	snapshot := append([]listener(nil), b.listeners...)
	b.mu.Unlock()

	for _, l := range snapshot {
		b.call(l)
	}
}

func (b *Bus) call(l listener) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(context.Background(), "change listener panicked", "listener", l.id, "panic", r)
		}
	}()
	l.fn()
}

func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
