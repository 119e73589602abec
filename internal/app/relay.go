package app

import (
	EventBus "github.com/asaskevich/EventBus"
	"github.com/talkincode/cafestock/internal/events"
)

// AsyncHandler receives relayed inventory events off the publishing goroutine
type AsyncHandler func(event string, payload interface{})

// Relay forwards inventory events to background consumers. Consumers run
// asynchronously so slow work never holds up the service or the view.
type Relay struct {
	source *events.Bus
	async  EventBus.Bus
	subs   []events.Subscription
}

func NewRelay(source *events.Bus) *Relay {
	r := &Relay{source: source, async: EventBus.New()}
	for _, name := range events.InventoryEvents {
		topic := name
		r.subs = append(r.subs, source.Subscribe(topic, func(payload interface{}) {
			r.async.Publish(topic, topic, payload)
		}))
	}
	return r
}

// SubscribeAsync registers fn for every inventory event. Deliveries of one
// event to one consumer never overlap.
func (r *Relay) SubscribeAsync(fn AsyncHandler) error {
	handler := func(event string, payload interface{}) { fn(event, payload) }
	for _, name := range events.InventoryEvents {
		if err := r.async.SubscribeAsync(name, handler, true); err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until every relayed event has been handled
func (r *Relay) Wait() {
	r.async.WaitAsync()
}

// Close stops relaying and drains pending deliveries
func (r *Relay) Close() {
	for _, sub := range r.subs {
		r.source.Unsubscribe(sub)
	}
	r.subs = nil
	r.async.WaitAsync()
}
