package store

import (
	"database/sql"
	"time"

	"github.com/geovannymcode/chatflow-client/internal/model"
)

// UpsertChat inserts or updates a chat record. The preview only moves
// forward in time: an older last_message_at never overwrites a newer one.
func (db *DB) UpsertChat(c *model.Chat) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chats (id, name, chat_type, unread_count, participant_count, other_participant_id, last_message_at, last_message_preview, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE chats.name END,
			chat_type = excluded.chat_type,
			unread_count = excluded.unread_count,
			participant_count = excluded.participant_count,
			other_participant_id = excluded.other_participant_id,
			last_message_at = MAX(chats.last_message_at, excluded.last_message_at),
			last_message_preview = CASE WHEN excluded.last_message_at >= chats.last_message_at THEN excluded.last_message_preview ELSE chats.last_message_preview END,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, string(c.Type), c.UnreadCount, c.ParticipantCount, c.OtherParticipantID,
		millis(c.LastMessageAt), c.LastMessagePreview, now)
	return err
}

// ListChats returns chats sorted by last message timestamp descending,
// chats without messages last.
func (db *DB) ListChats(limit, offset int) ([]model.Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, name, chat_type, unread_count, participant_count, other_participant_id, last_message_at, last_message_preview
		FROM chats
		ORDER BY last_message_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []model.Chat
	for rows.Next() {
		c, err := scanChat(rows.Scan)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns a single chat by id, or nil if absent.
func (db *DB) GetChat(id string) (*model.Chat, error) {
	row := db.QueryRow(`
		SELECT id, name, chat_type, unread_count, participant_count, other_participant_id, last_message_at, last_message_preview
		FROM chats WHERE id = ?`, id)
	c, err := scanChat(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanChat(scan func(...any) error) (model.Chat, error) {
	var c model.Chat
	var typ string
	var lastMs int64
	err := scan(&c.ID, &c.Name, &typ, &c.UnreadCount, &c.ParticipantCount, &c.OtherParticipantID, &lastMs, &c.LastMessagePreview)
	if err != nil {
		return c, err
	}
	c.Type = model.ChatType(typ)
	c.LastMessageAt = fromMillis(lastMs)
	return c, nil
}
