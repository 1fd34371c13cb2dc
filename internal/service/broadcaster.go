package service

import (
	"sync"

	"github.com/google/uuid"

	"github.com/damienbose/line-draw/internal/models"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls further behind starts dropping intermediate progress
// messages; terminal messages are retried by the websocket handler via
// the status snapshot, so nothing is lost that matters.
const subscriberBuffer = 16

// broadcaster fans one job's stream messages out to any number of
// subscribers. Sends never block: a slow or disconnected subscriber
// cannot stall the simulation loop.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[string]chan models.StreamMessage
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[string]chan models.StreamMessage)}
}

// subscribe registers a new listener. The returned id identifies the
// channel for unsubscribe.
func (b *broadcaster) subscribe() (string, chan models.StreamMessage) {
	ch := make(chan models.StreamMessage, subscriberBuffer)
	id := uuid.New().String()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subs[id] = ch
	return id, ch
}

// unsubscribe removes a listener. Safe to call after close.
func (b *broadcaster) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// publish delivers a message to every subscriber that has buffer space.
func (b *broadcaster) publish(msg models.StreamMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default: // subscriber is behind, drop
		}
	}
}

// close shuts down all subscriber channels. Further publishes are no-ops
// and further subscribes return a closed channel.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
