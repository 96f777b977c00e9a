package database

import (
	"database/sql"
	"fmt"
	"time"
)

const messageColumns = `m.id, m.room_id, m.content, m.deleted, m.pinned, m.created_at,
	a.id, a.username, a.email, a.avatar_url,
	EXISTS(SELECT 1 FROM admins ad WHERE ad.account_id = a.id)`

func (db *PgRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, avatar_url, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, username, email, avatar_url, created_at, updated_at",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		params.AvatarUrl,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.AvatarUrl,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgRepository) GetAccountById(id string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, avatar_url, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.AvatarUrl,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgRepository) GetAccountByEmail(email string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, avatar_url, password_hash FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.AvatarUrl,
		&a.PasswordHash,
	)

	return a, err
}

func (db *PgRepository) ListRooms() ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT id, name, description, is_active, created_at FROM rooms " +
			"WHERE is_active = TRUE ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err = rows.Scan(&r.Id, &r.Name, &r.Description, &r.IsActive, &r.CreatedAt); err != nil {
			break
		}

		rooms = append(rooms, r)
	}
	return rooms, err
}

func (db *PgRepository) GetRoomById(id string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, description, is_active, created_at FROM rooms "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var r Room
	err := row.Scan(
		&r.Id,
		&r.Name,
		&r.Description,
		&r.IsActive,
		&r.CreatedAt,
	)

	return r, err
}

func (db *PgRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	res := db.conn.QueryRow(
		"INSERT INTO rooms (id, name, description, is_active, created_at) "+
			"VALUES ($1, $2, $3, TRUE, $4) RETURNING id, name, description, is_active, created_at",
		params.Id,
		params.Name,
		params.Description,
		time.Now().UTC(),
	)

	var r Room
	err := res.Scan(
		&r.Id,
		&r.Name,
		&r.Description,
		&r.IsActive,
		&r.CreatedAt,
	)

	return r, err
}

func (db *PgRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	row := db.conn.QueryRow(
		"INSERT INTO messages (room_id, author_id, content, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id",
		params.RoomId,
		params.AuthorId,
		params.Content,
		time.Now().UTC(),
	)

	var id string
	if err := row.Scan(&id); err != nil {
		return Message{}, err
	}

	return db.GetMessageById(id)
}

func (db *PgRepository) GetMessageById(id string) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT "+messageColumns+" FROM messages m "+
			"JOIN accounts a ON m.author_id = a.id WHERE m.id = $1 LIMIT 1",
		id,
	)

	return scanMessage(row)
}

func (db *PgRepository) GetRecentMessages(roomId string, limit int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT "+messageColumns+" FROM messages m "+
			"JOIN accounts a ON m.author_id = a.id "+
			"WHERE m.room_id = $1 AND m.deleted = FALSE "+
			"ORDER BY m.created_at DESC, m.id DESC LIMIT $2",
		roomId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (db *PgRepository) GetMessagesBefore(roomId string, before time.Time, limit int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT "+messageColumns+" FROM messages m "+
			"JOIN accounts a ON m.author_id = a.id "+
			"WHERE m.room_id = $1 AND m.deleted = FALSE AND m.created_at < $2 "+
			"ORDER BY m.created_at DESC, m.id DESC LIMIT $3",
		roomId,
		before,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (db *PgRepository) SetMessageDeleted(id string) error {
	res, err := db.conn.Exec("UPDATE messages SET deleted = TRUE WHERE id = $1", id)
	if err != nil {
		return err
	}

	return requireOneRow(res)
}

func (db *PgRepository) SetMessagePinned(id string, pinned bool) error {
	res, err := db.conn.Exec("UPDATE messages SET pinned = $2 WHERE id = $1", id, pinned)
	if err != nil {
		return err
	}

	return requireOneRow(res)
}

func (db *PgRepository) CountMessagesSince(since time.Time, excludeAuthor string) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM messages "+
			"WHERE created_at > $1 AND deleted = FALSE AND ($2 = '' OR author_id <> $2)",
		since,
		excludeAuthor,
	)

	var count int
	err := row.Scan(&count)
	return count, err
}

func (db *PgRepository) CountMessagesSinceByRoom(since time.Time, excludeAuthor string) ([]RoomUnread, error) {
	rows, err := db.conn.Query(
		"SELECT room_id, COUNT(*) FROM messages "+
			"WHERE created_at > $1 AND deleted = FALSE AND ($2 = '' OR author_id <> $2) "+
			"GROUP BY room_id",
		since,
		excludeAuthor,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var unreads []RoomUnread
	for rows.Next() {
		var u RoomUnread
		if err = rows.Scan(&u.RoomId, &u.Count); err != nil {
			break
		}

		unreads = append(unreads, u)
	}
	return unreads, err
}

func (db *PgRepository) UpsertPresence(accountId, roomId string) error {
	_, err := db.conn.Exec(
		"INSERT INTO room_presence (account_id, room_id, last_seen) VALUES ($1, $2, $3) "+
			"ON CONFLICT (account_id, room_id) DO UPDATE SET last_seen = EXCLUDED.last_seen",
		accountId,
		roomId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgRepository) DeletePresence(accountId, roomId string) error {
	_, err := db.conn.Exec(
		"DELETE FROM room_presence WHERE account_id = $1 AND room_id = $2",
		accountId,
		roomId,
	)

	return err
}

func (db *PgRepository) CountPresence(roomId string, window time.Duration) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM room_presence WHERE room_id = $1 AND last_seen > $2",
		roomId,
		time.Now().UTC().Add(-window),
	)

	var count int
	err := row.Scan(&count)
	return count, err
}

func (db *PgRepository) IsAdmin(accountId string) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM admins WHERE account_id = $1)",
		accountId,
	)

	var isAdmin bool
	err := row.Scan(&isAdmin)
	return isAdmin, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (Message, error) {
	var m Message
	err := row.Scan(
		&m.Id,
		&m.RoomId,
		&m.Content,
		&m.Deleted,
		&m.Pinned,
		&m.CreatedAt,
		&m.AuthorId,
		&m.AuthorName,
		&m.AuthorEmail,
		&m.AuthorAvatar,
		&m.AuthorIsAdmin,
	)

	return m, err
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
