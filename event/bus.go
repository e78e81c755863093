package event

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"
)

// Handler receives a published event on the publishing goroutine
type Handler func(ev Event)

// Subscription is the explicit lifetime of one handler registration
type Subscription struct {
	bus     *Bus
	topic   Type
	deliver func(ev Event)
	dead    atomic.Bool
	once    sync.Once
}

// Unsubscribe detaches the handler; safe to call more than once
// Takes effect immediately, including for the event being delivered
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.dead.Store(true)
		s.bus.remove(s)
	})
}

// Bus fans notifications out to subscribers, one EventBus topic per event Type
// Every subscription installs its own delivery func on the topic. EventBus
// matches callbacks by code pointer, which all delivery funcs share, so a
// changed topic is resynced by removing every installed func and installing
// the live ones in subscription order before the next delivery
// Handlers may Subscribe and Unsubscribe but must not Publish: EventBus holds
// its lock during delivery, so reactions are pushed to the Queue instead
type Bus struct {
	bus evbus.Bus

	// pub serializes delivery with resync; installed mirrors EventBus under it
	pub       sync.Mutex
	installed map[Type][]*Subscription

	mu    sync.Mutex
	subs  map[Type][]*Subscription
	dirty map[Type]bool
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		bus:       evbus.New(),
		installed: make(map[Type][]*Subscription),
		subs:      make(map[Type][]*Subscription),
		dirty:     make(map[Type]bool),
	}
}

// Subscribe registers fn for events of type t
func (b *Bus) Subscribe(t Type, fn Handler) (*Subscription, error) {
	if t <= EventNone || t >= eventTypeCount {
		return nil, fmt.Errorf("subscribe: unknown event type %d", int(t))
	}
	if fn == nil {
		return nil, fmt.Errorf("subscribe %s: nil handler", t)
	}

	s := &Subscription{bus: b, topic: t}
	s.deliver = func(ev Event) {
		if !s.dead.Load() {
			fn(ev)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], s)
	b.dirty[t] = true
	return s, nil
}

// SubscribeAll registers fn for every event type
// The returned subscriptions are released together by the returned func
func (b *Bus) SubscribeAll(fn Handler) (func(), error) {
	subs := make([]*Subscription, 0, eventTypeCount)
	release := func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}
	for _, t := range AllTypes() {
		s, err := b.Subscribe(t, fn)
		if err != nil {
			release()
			return nil, err
		}
		subs = append(subs, s)
	}
	return release, nil
}

// Publish delivers ev synchronously to current subscribers in subscription order
func (b *Bus) Publish(ev Event) {
	if ev.Type <= EventNone || ev.Type >= eventTypeCount {
		return
	}
	b.pub.Lock()
	defer b.pub.Unlock()

	b.resync(ev.Type)
	b.bus.Publish(ev.Type.String(), ev)
}

// Drain consumes q and publishes every pending event, returns the count
func (b *Bus) Drain(q *Queue) int {
	events := q.Consume()
	for _, ev := range events {
		b.Publish(ev)
	}
	return len(events)
}

// Subscribers returns the live handler count for t
func (b *Bus) Subscribers(t Type) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[t])
}

// resync brings the EventBus topic for t in line with the live subscriptions
// Caller holds pub
func (b *Bus) resync(t Type) {
	b.mu.Lock()
	if !b.dirty[t] {
		b.mu.Unlock()
		return
	}
	live := slices.Clone(b.subs[t])
	b.dirty[t] = false
	b.mu.Unlock()

	topic := t.String()
	for _, s := range b.installed[t] {
		_ = b.bus.Unsubscribe(topic, s.deliver)
	}
	for _, s := range live {
		// Subscribe only fails for non-func callbacks
		_ = b.bus.Subscribe(topic, s.deliver)
	}
	b.installed[t] = live
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[s.topic]
	if i := slices.Index(subs, s); i >= 0 {
		b.subs[s.topic] = slices.Delete(subs, i, i+1)
		b.dirty[s.topic] = true
	}
}
