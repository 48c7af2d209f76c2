package events

import (
	"sync"

	"trading-core/internal/ringbuffer"
)

// replayDepth bounds how many of the most recent payloads per event are
// kept for replay to newly-subscribed listeners. A backtest run publishes
// its whole bar.processed stream in the time it takes an HTTP client to
// open a WebSocket and subscribe; without a replay window, a client that
// connects a few milliseconds into a run misses everything published
// before it subscribed and sees nothing until the next bar.
const replayDepth = 32

// Bus is a lightweight pub/sub broker using channels, with a short replay
// window per event so a late subscriber isn't starting from nothing.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Event][]chan any
	recent map[Event]*ringbuffer.RingBuffer[any]
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[Event][]chan any),
		recent: make(map[Event]*ringbuffer.RingBuffer[any]),
	}
}

// Subscribe registers a listener for an event and returns the channel and
// an unsubscribe function. Any payloads already published for this event
// (up to replayDepth, oldest first) are replayed onto the channel before
// Subscribe returns, so a run in progress doesn't look stalled to a client
// that subscribes after the first bar.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	b.subs[e] = append(b.subs[e], ch)

	if rb, ok := b.recent[e]; ok {
		for i := rb.Size() - 1; i >= 0; i-- {
			select {
			case ch <- rb.Get(i):
			default:
			}
		}
	}

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[e]
		for i, c := range subs {
			if c == ch {
				close(c)
				b.subs[e] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	return ch, unsub
}

// Publish fans the payload out to subscribers with a non-blocking send
// (a subscriber whose buffer is full misses the payload), and records it in
// the event's replay window.
func (b *Bus) Publish(e Event, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rb, ok := b.recent[e]
	if !ok {
		rb = ringbuffer.New[any](replayDepth)
		b.recent[e] = rb
	}
	rb.Push(payload)

	for _, ch := range b.subs[e] {
		select {
		case ch <- payload:
		default:
			// drop if subscriber is slow; keep broker non-blocking
		}
	}
}
