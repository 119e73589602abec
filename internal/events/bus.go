package events

import (
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Handler receives the payload of a published event
type Handler func(payload interface{})

// Subscription identifies one registered handler. The zero value matches nothing.
type Subscription struct {
	Event string
	id    uint64
}

type listener struct {
	id uint64
	fn Handler
}

// Bus is a synchronous in-process publish/subscribe registry.
// Handlers run on the publisher's goroutine in registration order.
type Bus struct {
	mu        sync.RWMutex
	seq       uint64
	listeners map[string][]listener
}

func New() *Bus {
	return &Bus{listeners: make(map[string][]listener)}
}

// Subscribe registers h for event and returns a handle for Unsubscribe
func (b *Bus) Subscribe(event string, h Handler) Subscription {
	id := atomic.AddUint64(&b.seq, 1)
	b.add(event, id, h)
	return Subscription{Event: event, id: id}
}

// SubscribeOnce registers h so that it runs for at most one publish of event
func (b *Bus) SubscribeOnce(event string, h Handler) Subscription {
	id := atomic.AddUint64(&b.seq, 1)
	sub := Subscription{Event: event, id: id}
	var fired int32
	b.add(event, id, func(payload interface{}) {
		if !atomic.CompareAndSwapInt32(&fired, 0, 1) {
			return
		}
		b.Unsubscribe(sub)
		h(payload)
	})
	return sub
}

func (b *Bus) add(event string, id uint64, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[event] = append(b.listeners[event], listener{id: id, fn: h})
}

// Unsubscribe removes the handler. Unknown or already removed subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.listeners[sub.Event]
	for i, l := range list {
		if l.id != sub.id {
			continue
		}
		next := make([]listener, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(b.listeners, sub.Event)
		} else {
			b.listeners[sub.Event] = next
		}
		return
	}
}

// Publish calls every handler registered for event at the time of the call.
// A panicking handler is logged and does not stop the remaining handlers.
func (b *Bus) Publish(event string, payload interface{}) {
	b.mu.RLock()
	snapshot := b.listeners[event]
	b.mu.RUnlock()

	for _, l := range snapshot {
		b.invoke(event, l, payload)
	}
}

func (b *Bus) invoke(event string, l listener, payload interface{}) {
	defer func() {
		if err := recover(); err != nil {
			zap.L().Error("event handler failed",
				zap.String("namespace", "events"),
				zap.String("event", event),
				zap.Any("error", err),
			)
		}
	}()
	l.fn(payload)
}

// RemoveAll drops the handlers of the given events, or of every event when none is named
func (b *Bus) RemoveAll(events ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(events) == 0 {
		b.listeners = make(map[string][]listener)
		return
	}
	for _, e := range events {
		delete(b.listeners, e)
	}
}

func (b *Bus) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[event])
}

// EventNames returns the sorted names of events with at least one handler
func (b *Bus) EventNames() []string {
	b.mu.RLock()
	names := make([]string, 0, len(b.listeners))
	for name := range b.listeners {
		names = append(names, name)
	}
	b.mu.RUnlock()
	sort.Strings(names)
	return names
}
