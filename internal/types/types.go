package types

import (
	"time"
)

type User struct {
	Id           string    `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	AvatarUrl    string    `json:"avatar_url,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Room is read-only reference data: rooms are created out of band and
// never change shape from the client's point of view.
type Room struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Message carries its author joined in so consumers never render a
// message with incomplete author metadata.
type Message struct {
	Id        string    `json:"id"`
	RoomId    string    `json:"room_id"`
	Author    User      `json:"author"`
	Content   string    `json:"content"`
	Deleted   bool      `json:"deleted"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomUnread is one entry of the per-room unread counts response.
type RoomUnread struct {
	RoomId string `json:"room_id"`
	Count  int    `json:"count"`
}
