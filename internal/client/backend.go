package client

import (
	"context"
	"time"

	"github.com/mfreile/supportchat/internal/types"
)

// FeedEvent is one realtime push from the backend. Exactly one of the
// event kinds applies. Delivery is at-least-once; consumers resolve
// duplicate ids by replacing, never appending.
type FeedEvent struct {
	Kind    FeedEventKind
	Message types.Message
}

type FeedEventKind int

const (
	FeedInsert FeedEventKind = iota
	FeedUpdate
)

// Backend is the surface of the chat service the client logic consumes.
// Reads, writes and subscriptions all go through here; the client owns no
// transport, ordering or storage behavior of its own.
type Backend interface {
	Rooms(ctx context.Context) ([]types.Room, error)
	// RecentMessages returns up to limit of the newest non-deleted messages
	// in ascending creation-time order.
	RecentMessages(ctx context.Context, roomId string, limit int) ([]types.Message, error)
	// MessagesBefore returns up to limit messages created strictly before
	// the cursor, ascending.
	MessagesBefore(ctx context.Context, roomId string, before time.Time, limit int) ([]types.Message, error)
	GetMessage(ctx context.Context, id string) (types.Message, error)
	Send(ctx context.Context, roomId, content string) (types.Message, error)
	SoftDelete(ctx context.Context, id string) error
	SetPinned(ctx context.Context, id string, pinned bool) error

	// CountSince counts non-deleted messages newer than since, excluding
	// those authored by excludeAuthor. An empty excludeAuthor excludes
	// nothing.
	CountSince(ctx context.Context, since time.Time, excludeAuthor string) (int, error)
	CountSinceByRoom(ctx context.Context, since time.Time, excludeAuthor string) ([]types.RoomUnread, error)

	Heartbeat(ctx context.Context, roomId string) error
	// ClearPresence removes the caller's presence row for the room. Rows
	// also age out server-side, so failures here are tolerable.
	ClearPresence(ctx context.Context, roomId string) error
	OnlineCount(ctx context.Context, roomId string) (int, error)
	IsAdmin(ctx context.Context, userId string) (bool, error)

	// Subscribe delivers feed events for one room, or for all rooms when
	// roomId is empty. The returned function cancels the subscription;
	// events already in flight may still be delivered after it returns.
	Subscribe(roomId string, fn func(FeedEvent)) (func(), error)
}
