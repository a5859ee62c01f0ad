// Package events fans chain event messages out to subscribers. The node
// forwards them to websocket clients.
package events

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// subscriberBuffer is the number of messages held for a subscriber that is
// not receiving. Further messages are dropped.
const subscriberBuffer = 100

type subscriber struct {
	ch     chan string
	prefix string
}

// Events maintains the set of subscribers keyed by a unique id.
type Events struct {
	subs    map[string]subscriber
	mu      sync.RWMutex
	dropped atomic.Uint64
}

// New constructs an empty set of subscribers.
func New() *Events {
	return &Events{
		subs: make(map[string]subscriber),
	}
}

// Shutdown closes and removes every subscriber channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.subs {
		delete(evt.subs, id)
		close(sub.ch)
	}
}

// Acquire registers a subscriber and returns the channel its messages are
// delivered on. Only messages starting with prefix are delivered; an empty
// prefix receives everything. Acquiring an id twice returns the original
// channel.
func (evt *Events) Acquire(id string, prefix string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if sub, exists := evt.subs[id]; exists {
		return sub.ch
	}

	sub := subscriber{
		ch:     make(chan string, subscriberBuffer),
		prefix: prefix,
	}
	evt.subs[id] = sub

	return sub.ch
}

// Release closes and removes the subscriber.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.subs, id)
	close(sub.ch)

	return nil
}

// Send delivers the message to every matching subscriber without blocking.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, sub := range evt.subs {
		if !strings.HasPrefix(s, sub.prefix) {
			continue
		}

		select {
		case sub.ch <- s:
		default:
			evt.dropped.Add(1)
		}
	}
}

// Count returns the number of subscribers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.subs)
}

// Dropped returns the number of messages not delivered because a
// subscriber's buffer was full.
func (evt *Events) Dropped() uint64 {
	return evt.dropped.Load()
}
