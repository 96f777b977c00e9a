package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}

func (m *MockRepository) GetAccountById(id string) (Account, error) {
	args := m.Called(id)
	return args.Get(0).(Account), args.Error(1)
}

func (m *MockRepository) GetAccountByEmail(email string) (Account, error) {
	args := m.Called(email)
	return args.Get(0).(Account), args.Error(1)
}

func (m *MockRepository) ListRooms() ([]Room, error) {
	args := m.Called()
	return args.Get(0).([]Room), args.Error(1)
}

func (m *MockRepository) GetRoomById(id string) (Room, error) {
	args := m.Called(id)
	return args.Get(0).(Room), args.Error(1)
}

func (m *MockRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}

func (m *MockRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockRepository) GetMessageById(id string) (Message, error) {
	args := m.Called(id)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockRepository) GetRecentMessages(roomId string, limit int) ([]Message, error) {
	args := m.Called(roomId, limit)
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockRepository) GetMessagesBefore(roomId string, before time.Time, limit int) ([]Message, error) {
	args := m.Called(roomId, before, limit)
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockRepository) SetMessageDeleted(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRepository) SetMessagePinned(id string, pinned bool) error {
	args := m.Called(id, pinned)
	return args.Error(0)
}

func (m *MockRepository) CountMessagesSince(since time.Time, excludeAuthor string) (int, error) {
	args := m.Called(since, excludeAuthor)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CountMessagesSinceByRoom(since time.Time, excludeAuthor string) ([]RoomUnread, error) {
	args := m.Called(since, excludeAuthor)
	return args.Get(0).([]RoomUnread), args.Error(1)
}

func (m *MockRepository) UpsertPresence(accountId, roomId string) error {
	args := m.Called(accountId, roomId)
	return args.Error(0)
}

func (m *MockRepository) DeletePresence(accountId, roomId string) error {
	args := m.Called(accountId, roomId)
	return args.Error(0)
}

func (m *MockRepository) CountPresence(roomId string, window time.Duration) (int, error) {
	args := m.Called(roomId, window)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) IsAdmin(accountId string) (bool, error) {
	args := m.Called(accountId)
	return args.Bool(0), args.Error(1)
}
