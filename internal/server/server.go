package server

import (
	"context"
	"log"
	"sync"

	"github.com/mfreile/supportchat/internal/stats"
	"github.com/mfreile/supportchat/internal/types"
)

const (
	metricActiveConnections = "ActiveConnections"
	metricEventsPublished   = "EventsPublished"
	metricEventsDropped     = "EventsDropped"
)

// Event is one feed push: a newly created message or an updated row
// (soft-delete and pin changes arrive as updates).
type Event struct {
	Insert *types.Message
	Update *types.Message
}

func (e Event) roomId() string {
	if e.Insert != nil {
		return e.Insert.RoomId
	}
	if e.Update != nil {
		return e.Update.RoomId
	}
	return ""
}

// Hub fans feed events out to every connected websocket client whose
// watch filter matches. It runs a single event loop; clients register and
// deregister through channels.
type Hub struct {
	log            *log.Logger
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	publishChan    chan Event
	stop           chan struct{}
	done           chan struct{}
}

func NewHub(logger *log.Logger, statsProvider stats.StatsProvider) *Hub {
	statsProvider.RegisterMetric(metricActiveConnections)
	statsProvider.RegisterMetric(metricEventsPublished)
	statsProvider.RegisterMetric(metricEventsDropped)

	return &Hub{
		log:            logger,
		stats:          statsProvider,
		clients:        make(map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		publishChan:    make(chan Event, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.RegisterChan:
			h.log.Printf("adding connection for %q", client.describe())
			h.addClient(client)
		case client := <-h.deRegisterChan:
			h.log.Printf("removing connection for %q", client.describe())
			h.removeClient(client)
		case ev := <-h.publishChan:
			h.broadcast(ev)
		case <-h.stop:
			h.log.Println("stopping feed hub")
			h.clientsLock.Lock()
			for c := range h.clients {
				c.stopClient()
			}
			h.clientsLock.Unlock()

			close(h.done)
			return
		}
	}
}

// Publish queues an event for fan-out without blocking the caller. Events
// are dropped with a log line when the hub is backed up; consumers
// tolerate gaps by re-querying.
func (h *Hub) Publish(ev Event) {
	select {
	case h.publishChan <- ev:
		h.stats.Incr(metricEventsPublished)
	default:
		h.log.Println("publish channel full, dropping event")
		h.stats.Incr(metricEventsDropped)
	}
}

func (h *Hub) RegisterClient(c *Client) {
	h.RegisterChan <- c
}

func (h *Hub) broadcast(ev Event) {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Insert:      ev.Insert,
		Update:      ev.Update,
	}

	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()
	for c := range h.clients {
		if !c.watching(ev.roomId()) {
			continue
		}

		c.queueMessage(msg)
	}
}

func (h *Hub) addClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()
	h.clients[c] = struct{}{}
	h.stats.Incr(metricActiveConnections)
}

func (h *Hub) removeClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.stats.Decr(metricActiveConnections)
	}
}

func (h *Hub) Shutdown(ctx context.Context) error {
	close(h.stop)

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
