package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mfreile/supportchat/internal/events"
	"github.com/mfreile/supportchat/internal/types"
)

const (
	DefaultPageSize          = 50
	DefaultHeartbeatInterval = 30 * time.Second
)

// ErrPrecondition is the failure signal for calls short-circuited before
// reaching the backend (no active room, empty content, unauthenticated
// send). It is returned to the caller but never recorded on Err().
var ErrPrecondition = errors.New("precondition not met")

type SessionState int

const (
	StateNoRoom SessionState = iota
	StateLoading
	StateReady
)

type Config struct {
	PageSize          int
	HeartbeatInterval time.Duration
	// RequestTimeout bounds each backend call when non-zero. The default
	// of zero applies no timeout: a stalled request leaves the in-flight
	// flag set until it returns.
	RequestTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
}

type SessionParams struct {
	Backend Backend
	Pos     *ReadPositionStore
	Bus     *events.Bus
	Logger  *log.Logger
	// UserId is empty for unauthenticated viewers; they can read but not
	// send, and no presence heartbeat is started for them.
	UserId string
	Config Config
}

// Session owns one active room at a time: its paginated message window,
// send/delete/pin mutations, the room's realtime subscription and the
// presence heartbeat. Switching rooms tears the previous room down before
// the new one is established.
type Session struct {
	backend Backend
	pos     *ReadPositionStore
	bus     *events.Bus
	log     *log.Logger
	userId  string
	cfg     Config

	mu          sync.Mutex
	state       SessionState
	roomId      string
	win         window
	hasMore     bool
	loading     bool
	onlineCount int
	isAdmin     bool
	err         error

	// generation increases on every room switch; feed events and poll
	// results carrying a stale generation are discarded.
	gen int

	unsubFeed     func()
	stopHeartbeat chan struct{}
}

func NewSession(p SessionParams) *Session {
	p.Config.applyDefaults()
	return &Session{
		backend: p.Backend,
		pos:     p.Pos,
		bus:     p.Bus,
		log:     p.Logger,
		userId:  p.UserId,
		cfg:     p.Config,
	}
}

// Start resolves the admin flag for authenticated users. The flag
// defaults to false while unresolved and for unauthenticated users.
func (s *Session) Start(ctx context.Context) {
	if s.userId == "" {
		return
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	isAdmin, err := s.backend.IsAdmin(ctx, s.userId)
	if err != nil {
		s.log.Println("admin check:", err)
		return
	}

	s.mu.Lock()
	s.isAdmin = isAdmin
	s.mu.Unlock()
}

// SetRoom switches the active room. An empty id clears the session. The
// previous room's subscription and heartbeat are torn down first; the
// message window and pagination cursor reset.
func (s *Session) SetRoom(ctx context.Context, roomId string) error {
	s.teardownRoom()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.roomId = roomId
	s.win.reset(nil)
	s.hasMore = false
	s.loading = false
	s.onlineCount = 0
	s.err = nil
	if roomId == "" {
		s.state = StateNoRoom
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoading
	s.mu.Unlock()

	opCtx, cancel := s.opContext(ctx)
	msgs, err := s.backend.RecentMessages(opCtx, roomId, s.cfg.PageSize)
	cancel()

	s.mu.Lock()
	if gen != s.gen {
		// a newer switch superseded this load
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.err = fmt.Errorf("load messages: %w", err)
		s.mu.Unlock()
		return s.err
	}
	s.win.reset(msgs)
	s.hasMore = len(msgs) == s.cfg.PageSize
	s.state = StateReady
	s.mu.Unlock()

	unsub, err := s.backend.Subscribe(roomId, func(ev FeedEvent) {
		s.handleFeedEvent(gen, ev)
	})
	if err != nil {
		s.mu.Lock()
		s.err = fmt.Errorf("subscribe room: %w", err)
		s.mu.Unlock()
		return s.err
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		unsub()
		return nil
	}
	s.unsubFeed = unsub
	if s.userId != "" {
		s.stopHeartbeat = make(chan struct{})
		go s.runHeartbeat(gen, roomId, s.stopHeartbeat)
	}
	s.mu.Unlock()

	// opening the room clears its sidebar badge
	s.bus.Publish(events.TopicRoomRead, roomId)

	return nil
}

// Close tears down the active room's subscription and heartbeat and
// removes the presence row best-effort.
func (s *Session) Close() {
	s.teardownRoom()

	s.mu.Lock()
	s.gen++
	s.roomId = ""
	s.state = StateNoRoom
	s.win.reset(nil)
	s.mu.Unlock()
}

func (s *Session) teardownRoom() {
	s.mu.Lock()
	unsub := s.unsubFeed
	stop := s.stopHeartbeat
	roomId := s.roomId
	s.unsubFeed = nil
	s.stopHeartbeat = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if stop != nil {
		close(stop)
	}

	if roomId != "" && s.userId != "" {
		ctx, cancel := s.opContext(context.Background())
		defer cancel()
		// best-effort: the row expires on its own if this fails
		if err := s.backend.ClearPresence(ctx, roomId); err != nil {
			s.log.Println("clear presence:", err)
		}
	}
}

// LoadMore extends the window backward. It is a no-op unless the last
// fetch returned a full page and no fetch is currently in flight.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateReady || !s.hasMore || s.loading {
		s.mu.Unlock()
		return nil
	}
	oldest, ok := s.win.oldest()
	if !ok {
		s.hasMore = false
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	gen := s.gen
	roomId := s.roomId
	s.mu.Unlock()

	opCtx, cancel := s.opContext(ctx)
	older, err := s.backend.MessagesBefore(opCtx, roomId, oldest.CreatedAt, s.cfg.PageSize)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	s.loading = false
	if err != nil {
		s.err = fmt.Errorf("load more: %w", err)
		return s.err
	}

	s.win.prependOlder(older)
	s.hasMore = len(older) == s.cfg.PageSize
	return nil
}

// Send publishes a message to the active room. It requires an
// authenticated user, an active room and non-empty trimmed content;
// otherwise it fails silently with ErrPrecondition so the caller can
// restore the typed text without a user-visible error.
func (s *Session) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)

	s.mu.Lock()
	roomId := s.roomId
	ready := s.state == StateReady
	s.mu.Unlock()

	if s.userId == "" || !ready || content == "" {
		return ErrPrecondition
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := s.backend.Send(opCtx, roomId, content); err != nil {
		s.mu.Lock()
		s.err = fmt.Errorf("send: %w", err)
		s.mu.Unlock()
		return s.err
	}

	// the message is appended by its own realtime echo
	return nil
}

// Delete soft-deletes a message and removes it from the window
// immediately, without waiting for the realtime echo. Who may delete is
// enforced by the backend.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	ready := s.state == StateReady
	s.mu.Unlock()
	if !ready {
		return ErrPrecondition
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.backend.SoftDelete(opCtx, id); err != nil {
		s.mu.Lock()
		s.err = fmt.Errorf("delete: %w", err)
		s.mu.Unlock()
		return s.err
	}

	s.mu.Lock()
	s.win.remove(id)
	s.mu.Unlock()
	return nil
}

// SetPinned toggles a message's pin flag, reflected immediately in local
// state; the later realtime echo is a no-op in effect.
func (s *Session) SetPinned(ctx context.Context, id string, pinned bool) error {
	s.mu.Lock()
	ready := s.state == StateReady
	s.mu.Unlock()
	if !ready {
		return ErrPrecondition
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.backend.SetPinned(opCtx, id, pinned); err != nil {
		s.mu.Lock()
		s.err = fmt.Errorf("pin: %w", err)
		s.mu.Unlock()
		return s.err
	}

	s.mu.Lock()
	for _, m := range s.win.Messages() {
		if m.Id == id {
			m.Pinned = pinned
			s.win.upsert(m)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) handleFeedEvent(gen int, ev FeedEvent) {
	s.mu.Lock()
	if gen != s.gen || s.state != StateReady {
		s.mu.Unlock()
		return
	}
	roomId := s.roomId
	s.mu.Unlock()

	if ev.Message.RoomId != roomId {
		return
	}

	switch ev.Kind {
	case FeedInsert:
		// fetch the enriched row so the window never holds a message with
		// incomplete author metadata
		ctx, cancel := s.opContext(context.Background())
		msg, err := s.backend.GetMessage(ctx, ev.Message.Id)
		cancel()
		if err != nil {
			s.log.Println("fetch inserted message:", err)
			return
		}

		s.mu.Lock()
		if gen == s.gen {
			if msg.Deleted {
				s.win.remove(msg.Id)
			} else {
				s.win.upsert(msg)
			}
		}
		s.mu.Unlock()
	case FeedUpdate:
		s.mu.Lock()
		if gen == s.gen {
			if ev.Message.Deleted {
				s.win.remove(ev.Message.Id)
			} else {
				s.win.upsert(ev.Message)
			}
		}
		s.mu.Unlock()
	}
}

func (s *Session) runHeartbeat(gen int, roomId string, stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	s.beat(gen, roomId)
	for {
		select {
		case <-ticker.C:
			s.beat(gen, roomId)
		case <-stop:
			return
		}
	}
}

func (s *Session) beat(gen int, roomId string) {
	ctx, cancel := s.opContext(context.Background())
	defer cancel()

	if err := s.backend.Heartbeat(ctx, roomId); err != nil {
		s.log.Println("presence heartbeat:", err)
	}

	count, err := s.backend.OnlineCount(ctx, roomId)
	if err != nil {
		s.log.Println("online count:", err)
		return
	}

	s.mu.Lock()
	if gen == s.gen {
		s.onlineCount = count
	}
	s.mu.Unlock()
}

func (s *Session) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RequestTimeout)
	}
	return ctx, func() {}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomId
}

// Messages returns a copy of the current window, ascending by creation
// time.
func (s *Session) Messages() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]types.Message, len(s.win.Messages()))
	copy(msgs, s.win.Messages())
	return msgs
}

func (s *Session) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

func (s *Session) OnlineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onlineCount
}

func (s *Session) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isAdmin
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
