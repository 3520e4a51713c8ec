package store

import (
	"time"

	"github.com/geovannymcode/chatflow-client/internal/model"
)

// UpsertMessage inserts or updates a message (idempotent on id).
// Content and the edit/delete flags follow the incoming record since the
// server is authoritative for those fields.
func (db *DB) UpsertMessage(m *model.Message) error {
	_, err := db.Exec(`
		INSERT INTO messages (id, chat_id, sender_id, sender_name, content, message_type, reply_to_id, created_at, updated_at, is_deleted, is_edited)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sender_name = excluded.sender_name,
			content = excluded.content,
			updated_at = excluded.updated_at,
			is_deleted = excluded.is_deleted,
			is_edited = excluded.is_edited`,
		m.ID, m.ChatID, m.SenderID, m.SenderName, m.Content, string(m.Type), m.ReplyToID,
		millis(m.CreatedAt), millis(m.UpdatedAt), m.IsDeleted, m.IsEdited)
	return err
}

// MarkMessageDeleted flags a message as deleted and blanks its content.
func (db *DB) MarkMessageDeleted(id string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE messages SET is_deleted = 1, content = '', updated_at = ? WHERE id = ?`, now, id)
	return err
}

// ListMessages returns messages for a chat using keyset pagination by
// creation time, newest first.
func (db *DB) ListMessages(chatID string, before time.Time, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	beforeMs := millis(before)
	if beforeMs <= 0 {
		beforeMs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT id, chat_id, sender_id, sender_name, content, message_type, reply_to_id, created_at, updated_at, is_deleted, is_edited
		FROM messages
		WHERE chat_id = ? AND created_at < ?
		ORDER BY created_at DESC
		LIMIT ?`, chatID, beforeMs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var typ string
		var createdMs, updatedMs int64
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.SenderName, &m.Content, &typ, &m.ReplyToID, &createdMs, &updatedMs, &m.IsDeleted, &m.IsEdited); err != nil {
			return nil, err
		}
		m.Type = model.MessageType(typ)
		m.CreatedAt = fromMillis(createdMs)
		m.UpdatedAt = fromMillis(updatedMs)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
