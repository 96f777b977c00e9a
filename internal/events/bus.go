package events

import (
	"sync"
)

// Topic names are fixed strings shared by the read-position store and the
// unread consumers. These are process-local signals, not network messages.
const (
	TopicMarkedAllRead = "chat:marked-all-read"
	// TopicRoomRead carries the room id as payload.
	TopicRoomRead = "chat:room-read"
)

type Handler func(payload string)

// Bus is a minimal in-process pub/sub. Publish invokes handlers
// synchronously on the caller's goroutine, so a consumer observing a
// "marked as read" signal has reset its state by the time Publish returns.
type Bus struct {
	mu     sync.Mutex
	nextId int
	subs   map[string]map[int]Handler
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]map[int]Handler),
	}
}

// Subscribe registers a handler for a topic and returns an unsubscribe
// function. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}

	id := b.nextId
	b.nextId++
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

func (b *Bus) Publish(topic, payload string) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}
