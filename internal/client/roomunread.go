package client

import (
	"context"
	"fmt"
	"log"
	"maps"
	"sync"

	"github.com/mfreile/supportchat/internal/events"
)

// RoomUnreadMap tracks unread counts grouped by room, using the same
// predicate as the global counter. Counts only grow between the two clear
// triggers: a global marked-as-read signal clears the whole map, a
// room-read signal removes that room's entry.
type RoomUnreadMap struct {
	backend Backend
	pos     *ReadPositionStore
	bus     *events.Bus
	log     *log.Logger
	userId  string

	mu     sync.Mutex
	counts map[string]int
	err    error

	unsubFeed     func()
	unsubAllRead  func()
	unsubRoomRead func()
}

func NewRoomUnreadMap(backend Backend, pos *ReadPositionStore, bus *events.Bus, logger *log.Logger, userId string) *RoomUnreadMap {
	return &RoomUnreadMap{
		backend: backend,
		pos:     pos,
		bus:     bus,
		log:     logger,
		userId:  userId,
		counts:  make(map[string]int),
	}
}

func (m *RoomUnreadMap) Start(ctx context.Context) error {
	unsub, err := m.backend.Subscribe("", m.handleFeedEvent)
	if err != nil {
		return fmt.Errorf("subscribe feed: %w", err)
	}
	m.unsubFeed = unsub

	m.unsubAllRead = m.bus.Subscribe(events.TopicMarkedAllRead, func(string) {
		m.mu.Lock()
		m.counts = make(map[string]int)
		m.mu.Unlock()
	})

	m.unsubRoomRead = m.bus.Subscribe(events.TopicRoomRead, func(roomId string) {
		m.mu.Lock()
		delete(m.counts, roomId)
		m.mu.Unlock()
	})

	m.Refresh(ctx)
	return nil
}

func (m *RoomUnreadMap) Stop() {
	if m.unsubFeed != nil {
		m.unsubFeed()
	}
	if m.unsubAllRead != nil {
		m.unsubAllRead()
	}
	if m.unsubRoomRead != nil {
		m.unsubRoomRead()
	}
}

// Refresh recomputes the map from the backend. On failure the previous
// map is kept and the error recorded; no retry.
func (m *RoomUnreadMap) Refresh(ctx context.Context) {
	unreads, err := m.backend.CountSinceByRoom(ctx, m.pos.Get(), m.userId)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.err = err
		m.log.Println("unread counts by room:", err)
		return
	}

	m.err = nil
	m.counts = make(map[string]int, len(unreads))
	for _, u := range unreads {
		if u.Count > 0 {
			m.counts[u.RoomId] = u.Count
		}
	}
}

// Counts returns a copy of the current map.
func (m *RoomUnreadMap) Counts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.counts)
}

func (m *RoomUnreadMap) Count(roomId string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[roomId]
}

func (m *RoomUnreadMap) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *RoomUnreadMap) handleFeedEvent(ev FeedEvent) {
	if ev.Kind != FeedInsert || ev.Message.Deleted {
		return
	}
	if m.userId != "" && ev.Message.Author.Id == m.userId {
		return
	}

	m.mu.Lock()
	m.counts[ev.Message.RoomId]++
	m.mu.Unlock()
}
