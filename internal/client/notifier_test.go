package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mfreile/supportchat/internal/events"
	"github.com/mfreile/supportchat/internal/testutil"
	"github.com/mfreile/supportchat/internal/types"
)

type recordingTitle struct {
	titles []string
}

func (r *recordingTitle) SetTitle(title string) {
	r.titles = append(r.titles, title)
}

func (r *recordingTitle) last() string {
	if len(r.titles) == 0 {
		return ""
	}
	return r.titles[len(r.titles)-1]
}

type recordingSound struct {
	plays int
	err   error
}

func (r *recordingSound) Play() error {
	r.plays++
	return r.err
}

type notifierFixture struct {
	backend *MockBackend
	bus     *events.Bus
	title   *recordingTitle
	sound   *recordingSound
	pos     *ReadPositionStore
	handler func(FeedEvent)
	n       *Notifier
}

func newTestNotifier(t *testing.T, userId string, initialCount int) *notifierFixture {
	f := &notifierFixture{
		backend: &MockBackend{},
		bus:     events.NewBus(),
		title:   &recordingTitle{},
		sound:   &recordingSound{},
	}

	f.backend.On("Subscribe", "", mock.Anything).Run(func(args mock.Arguments) {
		f.handler = args.Get(1).(func(FeedEvent))
	}).Return(func() {}, nil).Once()
	f.backend.On("CountSince", mock.Anything, mock.Anything, userId).Return(initialCount, nil).Once()

	f.pos = NewReadPositionStore(&MemoryPositionStorage{}, f.bus, testutil.TestLogger(t))
	f.n = NewNotifier(NotifierParams{
		Backend: f.backend,
		Pos:     f.pos,
		Bus:     f.bus,
		Title:   f.title,
		Sound:   f.sound,
		Logger:  testutil.TestLogger(t),
		AppName: "SupportChat",
		UserId:  userId,
	})

	err := f.n.Start(context.Background())
	assert.NoError(t, err, "expected notifier to start")
	assert.NotNil(t, f.handler, "expected feed handler to be captured")

	return f
}

func insertEvent(authorId string) FeedEvent {
	return FeedEvent{
		Kind: FeedInsert,
		Message: types.Message{
			Id:        "msg-1",
			RoomId:    "room-1",
			Author:    types.User{Id: authorId},
			Content:   "hello",
			CreatedAt: time.Now().UTC(),
		},
	}
}

func TestNotifierStart(t *testing.T) {
	f := newTestNotifier(t, "user-1", 3)
	defer f.backend.AssertExpectations(t)

	assert.Equal(t, 3, f.n.Count(), "expected initial count from backend")
	assert.Equal(t, "💬 (3) SupportChat", f.title.last(), "expected title to carry the count")
}

func TestNotifierFeedEvents(t *testing.T) {
	t.Run("insert increments and plays sound", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 0)

		f.handler(insertEvent("other-user"))
		assert.Equal(t, 1, f.n.Count(), "expected count to increment")
		assert.Equal(t, 1, f.sound.plays, "expected the cue to play once")
		assert.Equal(t, "💬 (1) SupportChat", f.title.last())
	})

	t.Run("own messages never count", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 0)

		f.handler(insertEvent("user-1"))
		assert.Equal(t, 0, f.n.Count(), "expected own message to be excluded")
		assert.Equal(t, 0, f.sound.plays, "expected no cue for own message")
	})

	t.Run("unauthenticated counts every author", func(t *testing.T) {
		f := newTestNotifier(t, "", 0)

		f.handler(insertEvent("anyone"))
		assert.Equal(t, 1, f.n.Count(), "expected message to count without a user id")
	})

	t.Run("deleted insert is ignored", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 0)

		ev := insertEvent("other-user")
		ev.Message.Deleted = true
		f.handler(ev)
		assert.Equal(t, 0, f.n.Count(), "expected deleted message not to count")
	})

	t.Run("updates are ignored", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 0)

		ev := insertEvent("other-user")
		ev.Kind = FeedUpdate
		f.handler(ev)
		assert.Equal(t, 0, f.n.Count(), "expected update event not to count")
	})

	t.Run("sound failure is swallowed", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 0)
		f.sound.err = errors.New("no audio device")

		f.handler(insertEvent("other-user"))
		assert.Equal(t, 1, f.n.Count(), "expected count despite sound failure")
		assert.NoError(t, f.n.Err(), "expected sound failure not to be recorded")
	})
}

func TestNotifierChatRoute(t *testing.T) {
	t.Run("entering the chat route pins count to zero", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 5)

		f.n.SetRoute(context.Background(), true)
		assert.Equal(t, 0, f.n.Count(), "expected count pinned to zero on the chat route")
		assert.Equal(t, "SupportChat", f.title.last(), "expected the bare app name on the chat route")
	})

	t.Run("inserts are ignored while on the chat route", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 0)
		f.n.SetRoute(context.Background(), true)

		f.handler(insertEvent("other-user"))
		assert.Equal(t, 0, f.n.Count(), "expected no increment while on the chat route")
		assert.Equal(t, 0, f.sound.plays, "expected no cue while on the chat route")
	})

	t.Run("leaving the chat route recounts", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 0)
		f.n.SetRoute(context.Background(), true)

		f.backend.On("CountSince", mock.Anything, mock.Anything, "user-1").Return(2, nil).Once()
		f.n.SetRoute(context.Background(), false)
		assert.Equal(t, 2, f.n.Count(), "expected a fresh count after leaving the chat route")
	})
}

func TestNotifierReadPosition(t *testing.T) {
	t.Run("entering the chat route advances the position", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 5)
		before := time.Now().UTC()

		f.n.SetRoute(context.Background(), true)
		assert.False(t, f.pos.Get().Before(before), "expected the read position to advance to now")
	})

	t.Run("inserts on the chat route advance the position", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 0)
		f.n.SetRoute(context.Background(), true)

		ev := insertEvent("other-user")
		ev.Message.CreatedAt = time.Now().UTC().Add(time.Minute)
		f.handler(ev)

		assert.Equal(t, ev.Message.CreatedAt, f.pos.Get(), "expected the position to follow the push")
	})

	t.Run("the position never moves backward", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 0)
		f.n.SetRoute(context.Background(), true)
		pos := f.pos.Get()

		ev := insertEvent("other-user")
		ev.Message.CreatedAt = pos.Add(-time.Hour)
		f.handler(ev)

		assert.Equal(t, pos, f.pos.Get(), "expected a stale push not to rewind the position")
	})

	t.Run("recount after leaving uses the advanced position", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 5)

		f.n.SetRoute(context.Background(), true)
		f.backend.On("CountSince", mock.Anything, mock.MatchedBy(func(since time.Time) bool {
			return since.After(EpochZero)
		}), "user-1").Return(0, nil).Once()
		f.n.SetRoute(context.Background(), false)

		assert.Equal(t, 0, f.n.Count(), "expected nothing unread after visiting the chat")
		f.backend.AssertExpectations(t)
	})

	t.Run("advancing clears the per-room map through the bus", func(t *testing.T) {
		f := newTestNotifier(t, "user-1", 5)

		cleared := false
		unsub := f.bus.Subscribe(events.TopicMarkedAllRead, func(string) {
			cleared = true
		})
		defer unsub()

		f.n.SetRoute(context.Background(), true)
		assert.True(t, cleared, "expected entering the chat route to broadcast marked-as-read")
	})
}

func TestNotifierMarkedAllRead(t *testing.T) {
	f := newTestNotifier(t, "user-1", 4)

	f.bus.Publish(events.TopicMarkedAllRead, "")
	assert.Equal(t, 0, f.n.Count(), "expected the marked-as-read signal to reset the count")
	assert.Equal(t, "SupportChat", f.title.last(), "expected the title to drop the badge")
}

func TestNotifierRefreshFailure(t *testing.T) {
	f := newTestNotifier(t, "user-1", 3)

	f.backend.On("CountSince", mock.Anything, mock.Anything, "user-1").
		Return(0, errors.New("backend down")).Once()

	f.n.Refresh(context.Background())
	assert.Equal(t, 3, f.n.Count(), "expected the previous count to be kept on failure")
	assert.Error(t, f.n.Err(), "expected the failure to be recorded")

	f.backend.On("CountSince", mock.Anything, mock.Anything, "user-1").Return(7, nil).Once()
	f.n.Refresh(context.Background())
	assert.Equal(t, 7, f.n.Count(), "expected a later refresh to recover")
	assert.NoError(t, f.n.Err(), "expected the recorded error to clear on success")
}

func TestNotifierVisibilityChanged(t *testing.T) {
	f := newTestNotifier(t, "user-1", 2)

	f.backend.AssertNumberOfCalls(t, "CountSince", 1)
	f.n.VisibilityChanged()

	assert.Equal(t, "💬 (2) SupportChat", f.title.last(), "expected the title re-asserted from memory")
	f.backend.AssertNumberOfCalls(t, "CountSince", 1)
}
