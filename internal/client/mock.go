package client

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mfreile/supportchat/internal/types"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Rooms(ctx context.Context) ([]types.Room, error) {
	args := m.Called(ctx)
	return args.Get(0).([]types.Room), args.Error(1)
}

func (m *MockBackend) RecentMessages(ctx context.Context, roomId string, limit int) ([]types.Message, error) {
	args := m.Called(ctx, roomId, limit)
	return args.Get(0).([]types.Message), args.Error(1)
}

func (m *MockBackend) MessagesBefore(ctx context.Context, roomId string, before time.Time, limit int) ([]types.Message, error) {
	args := m.Called(ctx, roomId, before, limit)
	return args.Get(0).([]types.Message), args.Error(1)
}

func (m *MockBackend) GetMessage(ctx context.Context, id string) (types.Message, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.Message), args.Error(1)
}

func (m *MockBackend) Send(ctx context.Context, roomId, content string) (types.Message, error) {
	args := m.Called(ctx, roomId, content)
	return args.Get(0).(types.Message), args.Error(1)
}

func (m *MockBackend) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackend) SetPinned(ctx context.Context, id string, pinned bool) error {
	args := m.Called(ctx, id, pinned)
	return args.Error(0)
}

func (m *MockBackend) CountSince(ctx context.Context, since time.Time, excludeAuthor string) (int, error) {
	args := m.Called(ctx, since, excludeAuthor)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) CountSinceByRoom(ctx context.Context, since time.Time, excludeAuthor string) ([]types.RoomUnread, error) {
	args := m.Called(ctx, since, excludeAuthor)
	return args.Get(0).([]types.RoomUnread), args.Error(1)
}

func (m *MockBackend) Heartbeat(ctx context.Context, roomId string) error {
	args := m.Called(ctx, roomId)
	return args.Error(0)
}

func (m *MockBackend) ClearPresence(ctx context.Context, roomId string) error {
	args := m.Called(ctx, roomId)
	return args.Error(0)
}

func (m *MockBackend) OnlineCount(ctx context.Context, roomId string) (int, error) {
	args := m.Called(ctx, roomId)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) IsAdmin(ctx context.Context, userId string) (bool, error) {
	args := m.Called(ctx, userId)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) Subscribe(roomId string, fn func(FeedEvent)) (func(), error) {
	args := m.Called(roomId, fn)
	if unsub, ok := args.Get(0).(func()); ok {
		return unsub, args.Error(1)
	}
	return func() {}, args.Error(1)
}
