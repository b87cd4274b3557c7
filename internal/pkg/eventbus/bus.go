// Package eventbus carries the "reminders changed" signal from the stores to
// whoever caches or displays reminder lists.
package eventbus

import (
	"fmt"
	"sync"

	"reminders/internal/pkg/logger"
)

// Op names the write that produced a change.
type Op string

const (
	OpAdded          Op = "added"
	OpUpdated        Op = "updated"
	OpDeleted        Op = "deleted"
	OpCompletedPurge Op = "completed_purged"
)

// Changed is published after every successful store write.
// ReminderID is empty for bulk operations.
type Changed struct {
	Op         Op
	ReminderID string
}

// Bus delivers Changed events to subscribers synchronously, in subscription order.
type Bus struct {
	mu      sync.RWMutex
	nextID  int
	subs    map[int]func(Changed)
	order   []int
	onPanic []func(Changed, any)
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]func(Changed))}
}

// Subscribe registers fn and returns a func that removes it.
func (b *Bus) Subscribe(fn func(Changed)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// OnPanic registers a hook that fires when a subscriber panics.
func (b *Bus) OnPanic(fn func(Changed, any)) {
	b.mu.Lock()
	b.onPanic = append(b.onPanic, fn)
	b.mu.Unlock()
}

// Publish calls every subscriber with ev. A nil bus is a no-op.
func (b *Bus) Publish(ev Changed) {
	if b == nil {
		return
	}
	b.mu.RLock()
	fns := make([]func(Changed), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	hooks := append([]func(Changed, any){}, b.onPanic...)
	b.mu.RUnlock()

	for _, fn := range fns {
		b.dispatch(fn, ev, hooks)
	}
}

func (b *Bus) dispatch(fn func(Changed), ev Changed, hooks []func(Changed, any)) {
	defer func() {
		if r := recover(); r != nil {
			for _, h := range hooks {
				h(ev, r)
			}
		}
	}()
	fn(ev)
}

// RegisterPanicLogger reports subscriber panics through log.
func RegisterPanicLogger(b *Bus, log logger.Logger) {
	b.OnPanic(func(ev Changed, recovered any) {
		log.Error(fmt.Sprintf("Subscriber panicked handling %s of reminder %q", ev.Op, ev.ReminderID), fmt.Errorf("%v", recovered))
	})
}
