// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

type Topic string
type Event = any

// SubscriberQueueSize bounds each subscriber channel. When a queue is full
// the oldest pending event is dropped to make room for the newest, so a
// slow subscriber always converges on fresh data instead of stalling the
// publisher. Live dashboard feed, not an audit log.
const SubscriberQueueSize = 5

// Bus implements an in-memory pub/sub with bounded, lossy per-subscriber
// queues. Publish never blocks.
type Bus struct {
	mu        sync.RWMutex
	subs      map[Topic]map[uint64]chan Event
	last      map[Topic]Event
	idCounter uint64
	closed    atomic.Bool

	eventCount    atomic.Int64
	sendCount     atomic.Int64
	sendDropCount atomic.Int64
}

// New returns an initialized Bus.
func New() *Bus {
	return &Bus{
		subs: make(map[Topic]map[uint64]chan Event),
		last: make(map[Topic]Event),
	}
}

// Publish publishes ev to topic and stores it as the "last" event for the
// topic. Delivery to each subscriber is non-blocking with drop-oldest
// semantics.
func (b *Bus) Publish(topic Topic, ev Event) {
	if b.closed.Load() {
		return
	}

	b.eventCount.Add(1)

	b.mu.Lock()
	if b.last == nil {
		// lost the race with Close between the closed check and here
		b.mu.Unlock()
		return
	}
	b.last[topic] = ev
	b.mu.Unlock()

	// Deliver under the read lock: channels are only closed while the write
	// lock is held, so a send can never hit a closed channel. Sends are
	// non-blocking, the lock is held only briefly.
	b.mu.RLock()
	for _, ch := range b.subs[topic] {
		b.sendDropOldest(ch, ev)
	}
	b.mu.RUnlock()
}

// sendDropOldest delivers ev to ch, evicting the oldest queued event if the
// channel is full. All operations are non-blocking.
func (b *Bus) sendDropOldest(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			b.sendCount.Add(1)
			return
		default:
		}
		// full: evict the oldest pending event and retry. Another consumer
		// may race us on the receive, so loop rather than assume the next
		// send succeeds.
		select {
		case <-ch:
			b.sendDropCount.Add(1)
		default:
		}
	}
}

// Subscribe subscribes to a topic and returns a receive-only channel and an
// unsubscribe func. If withLast is true and a "last" event is stored, it is
// delivered immediately. The subscription is removed and the channel closed
// when ctx is canceled or the returned unsubscribe func is called.
func (b *Bus) Subscribe(ctx context.Context, topic Topic, withLast bool) (<-chan Event, func()) {

	if b.closed.Load() {
		// subscribing after Close yields a closed channel
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	ch := make(chan Event, SubscriberQueueSize)
	id := atomic.AddUint64(&b.idCounter, 1)

	b.mu.Lock()
	if b.subs == nil {
		// lost the race with Close
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]chan Event)
	}
	b.subs[topic][id] = ch

	if withLast {
		if last, ok := b.last[topic]; ok {
			b.sendDropOldest(ch, last)
		}
	}
	b.mu.Unlock()

	done := make(chan struct{})
	unsub := func() {
		select {
		case <-done:
			// already unsubscribed
		default:
			close(done)
		}
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}

		b.mu.Lock()
		if m, ok := b.subs[topic]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(b.subs, topic)
			}
			// close while holding the lock so in-flight publishes
			// cannot send on a closed channel
			close(ch)
		}
		b.mu.Unlock()
	}()

	return ch, unsub
}

// GetLast returns the last published event for a topic (if any).
func (b *Bus) GetLast(topic Topic) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.last[topic]
	return v, ok
}

// Stats reports publish/send/drop counters since startup.
func (b *Bus) Stats() (events, sends, drops int64) {
	return b.eventCount.Load(), b.sendCount.Load(), b.sendDropCount.Load()
}

// Close closes the bus and all subscriber channels. After Close, Publish is
// a no-op and Subscribe returns a closed channel.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return // already closed
	}
	b.mu.Lock()
	for _, m := range b.subs {
		for _, ch := range m {
			close(ch)
		}
	}
	b.subs = nil
	b.last = nil
	b.mu.Unlock()
}
