package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/geovannymcode/chatflow-client/internal/model"
)

// rawMessage mirrors the server's ChatMessageDto. The sender can be nested
// as {userId, username} or flat, depending on the server version.
type rawMessage struct {
	ID         string  `json:"id"`
	ChatID     string  `json:"chatId"`
	Sender     *sender `json:"sender"`
	SenderID   string  `json:"senderId"`
	SenderName string  `json:"senderName"`
	Content    string  `json:"content"`
	Type       string  `json:"type"`
	ReplyToID  string  `json:"replyToId"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
	IsDeleted  bool    `json:"isDeleted"`
	IsEdited   bool    `json:"isEdited"`
	TempID     string  `json:"tempId"`
}

type sender struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ParseMessage normalizes a NEW_MESSAGE payload, flattening a nested sender.
func ParseMessage(payload json.RawMessage) (*MessageEvent, error) {
	var raw rawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode message payload: %w", err)
	}
	if raw.ID == "" || raw.ChatID == "" {
		return nil, fmt.Errorf("message payload missing id or chatId")
	}

	senderID := raw.SenderID
	senderName := raw.SenderName
	if raw.Sender != nil {
		if raw.Sender.UserID != "" {
			senderID = raw.Sender.UserID
		}
		if raw.Sender.Username != "" {
			senderName = raw.Sender.Username
		}
	}

	msgType := model.MessageType(raw.Type)
	if msgType == "" {
		msgType = model.MessageText
	}

	return &MessageEvent{
		Message: model.Message{
			ID:         raw.ID,
			ChatID:     raw.ChatID,
			SenderID:   senderID,
			SenderName: senderName,
			Content:    raw.Content,
			Type:       msgType,
			ReplyToID:  raw.ReplyToID,
			CreatedAt:  ParseTimestamp(raw.CreatedAt),
			UpdatedAt:  ParseTimestamp(raw.UpdatedAt),
			IsDeleted:  raw.IsDeleted,
			IsEdited:   raw.IsEdited,
		},
		TempID: raw.TempID,
	}, nil
}

// ParseDeleted normalizes a MESSAGE_DELETED payload.
func ParseDeleted(payload json.RawMessage) (*DeletedEvent, error) {
	var raw struct {
		ChatID    string `json:"chatId"`
		MessageID string `json:"messageId"`
		ID        string `json:"id"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode deleted payload: %w", err)
	}
	id := raw.MessageID
	if id == "" {
		id = raw.ID
	}
	if id == "" {
		return nil, fmt.Errorf("deleted payload missing message id")
	}
	return &DeletedEvent{ChatID: raw.ChatID, MessageID: id}, nil
}

// ParsePresence normalizes a PRESENCE payload.
func ParsePresence(payload json.RawMessage) (*model.PresenceNotification, error) {
	var raw struct {
		UserID     string `json:"userId"`
		Status     string `json:"status"`
		LastSeenAt string `json:"lastSeenAt"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode presence payload: %w", err)
	}
	if raw.UserID == "" {
		return nil, fmt.Errorf("presence payload missing userId")
	}
	st := model.PresenceStatus(raw.Status)
	if st == "" {
		st = model.PresenceOffline
	}
	return &model.PresenceNotification{
		UserID:     raw.UserID,
		Status:     st,
		LastSeenAt: ParseTimestamp(raw.LastSeenAt),
	}, nil
}

// ParseTyping normalizes a TYPING payload.
func ParseTyping(payload json.RawMessage) (*model.TypingNotification, error) {
	var raw struct {
		ChatID   string `json:"chatId"`
		UserID   string `json:"userId"`
		UserName string `json:"userName"`
		IsTyping bool   `json:"isTyping"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode typing payload: %w", err)
	}
	if raw.ChatID == "" || raw.UserID == "" {
		return nil, fmt.Errorf("typing payload missing chatId or userId")
	}
	return &model.TypingNotification{
		ChatID:   raw.ChatID,
		UserID:   raw.UserID,
		UserName: raw.UserName,
		IsTyping: raw.IsTyping,
	}, nil
}

// ParseAck normalizes a MESSAGE_ACK payload.
func ParseAck(payload json.RawMessage) (*model.MessageAck, error) {
	var raw struct {
		TempID    string `json:"tempId"`
		MessageID string `json:"messageId"`
		CreatedAt string `json:"createdAt"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode ack payload: %w", err)
	}
	if raw.TempID == "" {
		return nil, fmt.Errorf("ack payload missing tempId")
	}
	return &model.MessageAck{
		TempID:    raw.TempID,
		MessageID: raw.MessageID,
		CreatedAt: ParseTimestamp(raw.CreatedAt),
		Status:    raw.Status,
	}, nil
}

// ParseTimestamp accepts the server's ISO-8601 timestamps; anything
// unparseable maps to the zero time rather than failing the whole frame.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
