package events

import (
	"sync"
	"sync/atomic"
)

// Sink receives every published event synchronously. Sinks must not block;
// the NATS forwarder hands the event to the client's async publish path.
type Sink interface {
	Deliver(event Event)
}

// Bus fans events out to in-process subscribers and attached sinks.
// Subscriber channels are buffered; a slow subscriber loses events rather
// than stalling publishers, so the publish path stays non-blocking.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	sinks   []Sink
	nextID  int
	dropped atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber with the given channel buffer size and
// returns the channel plus an unsubscribe func. Unsubscribe closes the
// channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

// AttachSink adds an external delivery target (e.g. the NATS forwarder).
func (b *Bus) AttachSink(sink Sink) {
	if sink == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	b.mu.Unlock()
}

// Publish delivers the event to all subscribers and sinks. Never blocks.
func (b *Bus) Publish(event Event) {
	if event == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
	for _, sink := range b.sinks {
		sink.Deliver(event)
	}
}
