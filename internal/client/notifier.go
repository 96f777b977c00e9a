package client

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mfreile/supportchat/internal/events"
)

// TitleSetter mirrors the unread count into the hosting surface (a window
// title, a tray badge). Implementations must not block.
type TitleSetter interface {
	SetTitle(title string)
}

// SoundPlayer plays the new-message cue. Errors are intentionally
// discarded by the notifier: sound is not a correctness requirement, and
// implementations should not retry.
type SoundPlayer interface {
	Play() error
}

// NopTitleSetter and NopSoundPlayer are the defaults for headless
// consumers.
type NopTitleSetter struct{}

func (NopTitleSetter) SetTitle(string) {}

type NopSoundPlayer struct{}

func (NopSoundPlayer) Play() error { return nil }

// Notifier maintains the single unread-message counter: messages newer
// than the read position, not authored by the current user, not deleted.
// While the chat route is active the counter is pinned to zero; being
// there is itself proof of having seen everything going forward.
type Notifier struct {
	backend Backend
	pos     *ReadPositionStore
	bus     *events.Bus
	title   TitleSetter
	sound   SoundPlayer
	log     *log.Logger

	appName string
	userId  string

	mu          sync.Mutex
	count       int
	onChatRoute bool
	err         error

	unsubFeed func()
	unsubBus  func()
}

type NotifierParams struct {
	Backend Backend
	Pos     *ReadPositionStore
	Bus     *events.Bus
	Title   TitleSetter
	Sound   SoundPlayer
	Logger  *log.Logger
	AppName string
	// UserId is the current user's id, or empty for unauthenticated
	// consumers. Unauthenticated users still receive a count; only the
	// own-authorship exclusion is skipped.
	UserId string
}

func NewNotifier(p NotifierParams) *Notifier {
	if p.Title == nil {
		p.Title = NopTitleSetter{}
	}
	if p.Sound == nil {
		p.Sound = NopSoundPlayer{}
	}

	return &Notifier{
		backend: p.Backend,
		pos:     p.Pos,
		bus:     p.Bus,
		title:   p.Title,
		sound:   p.Sound,
		log:     p.Logger,
		appName: p.AppName,
		userId:  p.UserId,
	}
}

// Start subscribes to the global feed and the marked-as-read signal and
// computes the initial count.
func (n *Notifier) Start(ctx context.Context) error {
	unsub, err := n.backend.Subscribe("", n.handleFeedEvent)
	if err != nil {
		return fmt.Errorf("subscribe feed: %w", err)
	}
	n.unsubFeed = unsub

	n.unsubBus = n.bus.Subscribe(events.TopicMarkedAllRead, func(string) {
		n.mu.Lock()
		n.count = 0
		n.mu.Unlock()
		n.applyTitle()
	})

	n.Refresh(ctx)
	return nil
}

func (n *Notifier) Stop() {
	if n.unsubFeed != nil {
		n.unsubFeed()
	}
	if n.unsubBus != nil {
		n.unsubBus()
	}
}

// SetRoute records whether the chat route is active. Entering the chat
// route forces the counter to zero and advances the read position to now,
// so a later recount does not resurrect messages already seen; leaving it
// triggers a recount.
func (n *Notifier) SetRoute(ctx context.Context, onChatRoute bool) {
	n.mu.Lock()
	n.onChatRoute = onChatRoute
	if onChatRoute {
		n.count = 0
	}
	n.mu.Unlock()

	if onChatRoute {
		n.advancePosition(time.Now().UTC())
		n.applyTitle()
		return
	}

	n.Refresh(ctx)
}

// advancePosition moves the read position forward, never backward. Must
// not be called with the mutex held: Set broadcasts synchronously and the
// marked-as-read handler takes the same lock.
func (n *Notifier) advancePosition(t time.Time) {
	if t.After(n.pos.Get()) {
		n.pos.Set(t)
	}
}

// Refresh recomputes the counter from the backend. On failure the
// previous in-memory count is kept and the error is recorded; there is no
// retry.
func (n *Notifier) Refresh(ctx context.Context) {
	n.mu.Lock()
	if n.onChatRoute {
		n.count = 0
		n.mu.Unlock()
		n.applyTitle()
		return
	}
	n.mu.Unlock()

	count, err := n.backend.CountSince(ctx, n.pos.Get(), n.userId)
	n.mu.Lock()
	if err != nil {
		n.err = err
		n.log.Println("unread count:", err)
	} else {
		n.err = nil
		n.count = count
	}
	n.mu.Unlock()

	n.applyTitle()
}

// VisibilityChanged re-asserts the title from in-memory state. This is a
// display refresh, not a recount.
func (n *Notifier) VisibilityChanged() {
	n.applyTitle()
}

func (n *Notifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

func (n *Notifier) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

func (n *Notifier) handleFeedEvent(ev FeedEvent) {
	if ev.Kind != FeedInsert || ev.Message.Deleted {
		return
	}
	if n.userId != "" && ev.Message.Author.Id == n.userId {
		return
	}

	n.mu.Lock()
	if n.onChatRoute {
		n.mu.Unlock()
		// the push is read on arrival: the user is looking at the chat
		n.advancePosition(ev.Message.CreatedAt)
		return
	}
	n.count++
	n.mu.Unlock()

	n.applyTitle()
	// best-effort cue; failures are intentionally discarded
	_ = n.sound.Play()
}

func (n *Notifier) applyTitle() {
	n.mu.Lock()
	count := n.count
	onChatRoute := n.onChatRoute
	n.mu.Unlock()

	if onChatRoute || count == 0 {
		n.title.SetTitle(n.appName)
		return
	}
	n.title.SetTitle(fmt.Sprintf("💬 (%d) %s", count, n.appName))
}
