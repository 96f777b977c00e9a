package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mfreile/supportchat/internal/server"
	"github.com/mfreile/supportchat/internal/types"
)

// RemoteBackend talks to the chat service over its HTTP API and websocket
// feed. The session cookie set by Login is carried on every subsequent
// request, including the websocket dial.
type RemoteBackend struct {
	baseUrl    string
	httpClient *http.Client
	log        *log.Logger
}

func NewRemoteBackend(baseUrl string, logger *log.Logger) (*RemoteBackend, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	return &RemoteBackend{
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		httpClient: &http.Client{Jar: jar},
		log:        logger,
	}, nil
}

type serverError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (r *RemoteBackend) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := r.baseUrl + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var srvErr serverError
		if err := json.NewDecoder(resp.Body).Decode(&srvErr); err == nil && srvErr.Message != "" {
			return fmt.Errorf("%s %s: %s", method, path, srvErr.Message)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// Login establishes a session. The server responds with a cookie the
// client's jar holds for the rest of the process.
func (r *RemoteBackend) Login(ctx context.Context, email, password string) (types.User, error) {
	var user types.User
	err := r.do(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &user)
	return user, err
}

func (r *RemoteBackend) Logout(ctx context.Context) error {
	return r.do(ctx, http.MethodGet, "/api/auth/logout", nil, nil, nil)
}

func (r *RemoteBackend) Rooms(ctx context.Context) ([]types.Room, error) {
	var rooms []types.Room
	err := r.do(ctx, http.MethodGet, "/api/rooms", nil, nil, &rooms)
	return rooms, err
}

func (r *RemoteBackend) RecentMessages(ctx context.Context, roomId string, limit int) ([]types.Message, error) {
	query := url.Values{}
	query.Set("room_id", roomId)
	query.Set("limit", strconv.Itoa(limit))

	var messages []types.Message
	if err := r.do(ctx, http.MethodGet, "/api/messages", query, nil, &messages); err != nil {
		return nil, err
	}

	// the server returns newest first
	slices.Reverse(messages)
	return messages, nil
}

func (r *RemoteBackend) MessagesBefore(ctx context.Context, roomId string, before time.Time, limit int) ([]types.Message, error) {
	query := url.Values{}
	query.Set("room_id", roomId)
	query.Set("before", before.Format(time.RFC3339Nano))
	query.Set("limit", strconv.Itoa(limit))

	var messages []types.Message
	if err := r.do(ctx, http.MethodGet, "/api/messages", query, nil, &messages); err != nil {
		return nil, err
	}

	slices.Reverse(messages)
	return messages, nil
}

func (r *RemoteBackend) GetMessage(ctx context.Context, id string) (types.Message, error) {
	query := url.Values{}
	query.Set("id", id)

	var msg types.Message
	err := r.do(ctx, http.MethodGet, "/api/messages/message", query, nil, &msg)
	return msg, err
}

func (r *RemoteBackend) Send(ctx context.Context, roomId, content string) (types.Message, error) {
	var msg types.Message
	err := r.do(ctx, http.MethodPost, "/api/messages", nil, map[string]string{
		"room_id": roomId,
		"content": content,
	}, &msg)
	return msg, err
}

func (r *RemoteBackend) SoftDelete(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("id", id)
	return r.do(ctx, http.MethodDelete, "/api/messages", query, nil, nil)
}

func (r *RemoteBackend) SetPinned(ctx context.Context, id string, pinned bool) error {
	return r.do(ctx, http.MethodPut, "/api/messages/pin", nil, map[string]any{
		"id":     id,
		"pinned": pinned,
	}, nil)
}

func (r *RemoteBackend) CountSince(ctx context.Context, since time.Time, excludeAuthor string) (int, error) {
	query := url.Values{}
	query.Set("since", since.Format(time.RFC3339Nano))
	if excludeAuthor != "" {
		query.Set("exclude", excludeAuthor)
	}

	var resp struct {
		Count int `json:"count"`
	}
	err := r.do(ctx, http.MethodGet, "/api/unread", query, nil, &resp)
	return resp.Count, err
}

func (r *RemoteBackend) CountSinceByRoom(ctx context.Context, since time.Time, excludeAuthor string) ([]types.RoomUnread, error) {
	query := url.Values{}
	query.Set("since", since.Format(time.RFC3339Nano))
	if excludeAuthor != "" {
		query.Set("exclude", excludeAuthor)
	}

	var counts []types.RoomUnread
	err := r.do(ctx, http.MethodGet, "/api/unread/rooms", query, nil, &counts)
	return counts, err
}

func (r *RemoteBackend) Heartbeat(ctx context.Context, roomId string) error {
	query := url.Values{}
	query.Set("room_id", roomId)
	return r.do(ctx, http.MethodPost, "/api/presence", query, nil, nil)
}

func (r *RemoteBackend) ClearPresence(ctx context.Context, roomId string) error {
	query := url.Values{}
	query.Set("room_id", roomId)
	return r.do(ctx, http.MethodDelete, "/api/presence", query, nil, nil)
}

func (r *RemoteBackend) OnlineCount(ctx context.Context, roomId string) (int, error) {
	query := url.Values{}
	query.Set("room_id", roomId)

	var resp struct {
		Count int `json:"count"`
	}
	err := r.do(ctx, http.MethodGet, "/api/presence/count", query, nil, &resp)
	return resp.Count, err
}

func (r *RemoteBackend) IsAdmin(ctx context.Context, userId string) (bool, error) {
	query := url.Values{}
	query.Set("user_id", userId)

	var resp struct {
		IsAdmin bool `json:"is_admin"`
	}
	err := r.do(ctx, http.MethodGet, "/api/admin", query, nil, &resp)
	return resp.IsAdmin, err
}

func (r *RemoteBackend) wsUrl() (string, error) {
	u, err := url.Parse(r.baseUrl)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"

	return u.String(), nil
}

func (r *RemoteBackend) Subscribe(roomId string, fn func(FeedEvent)) (func(), error) {
	wsUrl, err := r.wsUrl()
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{Jar: r.httpClient.Jar}
	conn, _, err := dialer.Dial(wsUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsUrl, err)
	}

	watch := &server.ClientMessage{
		BaseMessage: server.BaseMessage{Id: 1, Timestamp: server.Now()},
		Watch:       &server.Watch{RoomId: roomId},
	}
	if err := conn.WriteJSON(watch); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send watch: %w", err)
	}

	var closeOnce sync.Once
	cancel := func() {
		closeOnce.Do(func() {
			conn.Close()
		})
	}

	go func() {
		defer cancel()
		for {
			var msg server.ServerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					r.log.Printf("feed connection closed: %v", err)
				}
				return
			}

			switch {
			case msg.Insert != nil:
				fn(FeedEvent{Kind: FeedInsert, Message: *msg.Insert})
			case msg.Update != nil:
				fn(FeedEvent{Kind: FeedUpdate, Message: *msg.Update})
			}
		}
	}()

	return cancel, nil
}
