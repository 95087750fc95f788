// Package notify is the in-process notification channel used by the help
// registry to announce state changes.
//
// Delivery is synchronous and fans out to every subscriber registered at the
// time of publishing. There is no replay. A subscriber that panics is
// recovered and logged, and delivery continues with the remaining subscribers.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/helpme/internal/ctxlog"
)

// Event names a registry change.
type Event string

const (
	// ToggleVisibility fires whenever the visibility flag is set or flipped.
	ToggleVisibility Event = "toggle-visibility"
	// LocaleChanged fires whenever the active locale is set.
	LocaleChanged Event = "locale-changed"
	// DatabaseChanged fires after a bulk load has been merged.
	DatabaseChanged Event = "database-changed"
	// DatabaseUpdated fires after a single entry was set. Key names the entry.
	DatabaseUpdated Event = "database-updated"
)

// Events lists every event in a stable order.
var Events = []Event{ToggleVisibility, LocaleChanged, DatabaseChanged, DatabaseUpdated}

// Notification is what subscribers receive.
type Notification struct {
	Event Event
	// Key is only set for DatabaseUpdated.
	Key string
}

// Handler receives notifications.
type Handler func(Notification)

type subscriber struct {
	id uint64
	fn Handler
}

// Bus is a publish/subscribe channel. The zero value is ready to use.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID uint64
}

// Subscribe registers fn and returns a function that removes it again.
// The returned function is idempotent and safe to call from inside a handler.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	if fn == nil {
		panic("notify: nil handler")
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of current subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers n to a snapshot of the current subscribers on the calling
// goroutine. Panicking subscribers are logged through the logger in ctx.
func (b *Bus) Publish(ctx context.Context, n Notification) {
	b.mu.RLock()
	snapshot := make([]subscriber, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.RUnlock()

	for _, s := range snapshot {
		deliver(ctx, s, n)
	}
}

func deliver(ctx context.Context, s subscriber, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Notification subscriber panicked.",
				"event", string(n.Event),
				"subscriber", s.id,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	s.fn(n)
}
