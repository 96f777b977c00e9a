package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mfreile/supportchat/internal/events"
	"github.com/mfreile/supportchat/internal/testutil"
	"github.com/mfreile/supportchat/internal/types"
)

type roomUnreadFixture struct {
	backend *MockBackend
	bus     *events.Bus
	handler func(FeedEvent)
	m       *RoomUnreadMap
}

func newTestRoomUnreadMap(t *testing.T, userId string, initial []types.RoomUnread) *roomUnreadFixture {
	f := &roomUnreadFixture{
		backend: &MockBackend{},
		bus:     events.NewBus(),
	}

	f.backend.On("Subscribe", "", mock.Anything).Run(func(args mock.Arguments) {
		f.handler = args.Get(1).(func(FeedEvent))
	}).Return(func() {}, nil).Once()
	f.backend.On("CountSinceByRoom", mock.Anything, mock.Anything, userId).Return(initial, nil).Once()

	pos := NewReadPositionStore(&MemoryPositionStorage{}, f.bus, testutil.TestLogger(t))
	f.m = NewRoomUnreadMap(f.backend, pos, f.bus, testutil.TestLogger(t), userId)

	err := f.m.Start(context.Background())
	assert.NoError(t, err, "expected room unread map to start")
	assert.NotNil(t, f.handler, "expected feed handler to be captured")

	return f
}

func roomInsert(roomId, authorId string) FeedEvent {
	return FeedEvent{
		Kind: FeedInsert,
		Message: types.Message{
			Id:     "msg-" + roomId,
			RoomId: roomId,
			Author: types.User{Id: authorId},
		},
	}
}

func TestRoomUnreadMapRefresh(t *testing.T) {
	t.Run("populates from backend", func(t *testing.T) {
		f := newTestRoomUnreadMap(t, "user-1", []types.RoomUnread{
			{RoomId: "room-1", Count: 2},
			{RoomId: "room-2", Count: 5},
		})
		defer f.backend.AssertExpectations(t)

		assert.Equal(t, map[string]int{"room-1": 2, "room-2": 5}, f.m.Counts())
	})

	t.Run("zero counts are omitted", func(t *testing.T) {
		f := newTestRoomUnreadMap(t, "user-1", []types.RoomUnread{
			{RoomId: "room-1", Count: 0},
			{RoomId: "room-2", Count: 1},
		})

		assert.Equal(t, map[string]int{"room-2": 1}, f.m.Counts(), "expected zero-count rooms to be absent")
	})

	t.Run("failure keeps the previous map", func(t *testing.T) {
		f := newTestRoomUnreadMap(t, "user-1", []types.RoomUnread{{RoomId: "room-1", Count: 2}})

		f.backend.On("CountSinceByRoom", mock.Anything, mock.Anything, "user-1").
			Return([]types.RoomUnread(nil), errors.New("backend down")).Once()

		f.m.Refresh(context.Background())
		assert.Equal(t, map[string]int{"room-1": 2}, f.m.Counts(), "expected the stale map to be kept")
		assert.Error(t, f.m.Err(), "expected the failure to be recorded")
	})
}

func TestRoomUnreadMapFeedEvents(t *testing.T) {
	t.Run("insert increments only its room", func(t *testing.T) {
		f := newTestRoomUnreadMap(t, "user-1", nil)

		f.handler(roomInsert("room-1", "other-user"))
		f.handler(roomInsert("room-1", "other-user"))
		f.handler(roomInsert("room-2", "other-user"))

		assert.Equal(t, 2, f.m.Count("room-1"))
		assert.Equal(t, 1, f.m.Count("room-2"))
		assert.Equal(t, 0, f.m.Count("room-3"), "expected untouched rooms to read zero")
	})

	t.Run("own messages never count", func(t *testing.T) {
		f := newTestRoomUnreadMap(t, "user-1", nil)

		f.handler(roomInsert("room-1", "user-1"))
		assert.Equal(t, 0, f.m.Count("room-1"))
	})

	t.Run("deleted inserts are ignored", func(t *testing.T) {
		f := newTestRoomUnreadMap(t, "user-1", nil)

		ev := roomInsert("room-1", "other-user")
		ev.Message.Deleted = true
		f.handler(ev)
		assert.Equal(t, 0, f.m.Count("room-1"))
	})
}

func TestRoomUnreadMapClearTriggers(t *testing.T) {
	t.Run("marked-as-read clears everything", func(t *testing.T) {
		f := newTestRoomUnreadMap(t, "user-1", []types.RoomUnread{
			{RoomId: "room-1", Count: 2},
			{RoomId: "room-2", Count: 3},
		})

		f.bus.Publish(events.TopicMarkedAllRead, "")
		assert.Empty(t, f.m.Counts(), "expected the whole map cleared")
	})

	t.Run("room-read clears only that room", func(t *testing.T) {
		f := newTestRoomUnreadMap(t, "user-1", []types.RoomUnread{
			{RoomId: "room-1", Count: 2},
			{RoomId: "room-2", Count: 3},
		})

		f.bus.Publish(events.TopicRoomRead, "room-1")
		assert.Equal(t, map[string]int{"room-2": 3}, f.m.Counts(), "expected only the opened room cleared")
	})
}
