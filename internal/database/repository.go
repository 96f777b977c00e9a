package database

import "time"

type Repository interface {
	Ping() error

	CreateAccount(params CreateAccountParams) (Account, error)
	GetAccountById(id string) (Account, error)
	GetAccountByEmail(email string) (Account, error)

	ListRooms() ([]Room, error)
	GetRoomById(id string) (Room, error)
	CreateRoom(params CreateRoomParams) (Room, error)

	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessageById(id string) (Message, error)
	// GetRecentMessages returns up to limit of the newest non-deleted
	// messages, newest first.
	GetRecentMessages(roomId string, limit int) ([]Message, error)
	// GetMessagesBefore returns up to limit non-deleted messages created
	// strictly before the cursor, newest first.
	GetMessagesBefore(roomId string, before time.Time, limit int) ([]Message, error)
	SetMessageDeleted(id string) error
	SetMessagePinned(id string, pinned bool) error

	CountMessagesSince(since time.Time, excludeAuthor string) (int, error)
	CountMessagesSinceByRoom(since time.Time, excludeAuthor string) ([]RoomUnread, error)

	UpsertPresence(accountId, roomId string) error
	DeletePresence(accountId, roomId string) error
	CountPresence(roomId string, window time.Duration) (int, error)

	IsAdmin(accountId string) (bool, error)
}
