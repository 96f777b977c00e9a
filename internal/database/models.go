package database

import "time"

type Account struct {
	Id           string
	Username     string
	EmailAddress string
	AvatarUrl    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
}

// Message rows come back with the author joined in, so callers never see
// a message without author metadata.
type Message struct {
	Id            string
	RoomId        string
	AuthorId      string
	AuthorName    string
	AuthorEmail   string
	AuthorAvatar  string
	AuthorIsAdmin bool
	Content       string
	Deleted       bool
	Pinned        bool
	CreatedAt     time.Time
}

type Presence struct {
	AccountId string
	RoomId    string
	LastSeen  time.Time
}

type RoomUnread struct {
	RoomId string
	Count  int
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
	AvatarUrl    string
}

type CreateRoomParams struct {
	Id          string
	Name        string
	Description string
}

type CreateMessageParams struct {
	RoomId   string
	AuthorId string
	Content  string
}
