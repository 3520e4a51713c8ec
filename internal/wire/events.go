package wire

import "github.com/geovannymcode/chatflow-client/internal/model"

// Inbound frame types pushed by the server. The dispatch key is an opaque
// string; the server may introduce new types additively.
const (
	TypeNewMessage     = "NEW_MESSAGE"
	TypeMessageDeleted = "MESSAGE_DELETED"
	TypePresence       = "PRESENCE"
	TypeTyping         = "TYPING"
	TypeMessageAck     = "MESSAGE_ACK"
	TypeError          = "ERROR"
)

// MessageEvent is a parsed inbound NEW_MESSAGE. TempID is set when the
// message confirms one of this client's own optimistic sends.
type MessageEvent struct {
	Message model.Message
	TempID  string
}

// DeletedEvent is a parsed inbound MESSAGE_DELETED.
type DeletedEvent struct {
	ChatID    string
	MessageID string
}

// SendMessagePayload is the outbound NEW_MESSAGE body.
type SendMessagePayload struct {
	ChatID    string `json:"chatId"`
	Content   string `json:"content"`
	Type      string `json:"type,omitempty"`
	ReplyToID string `json:"replyToId,omitempty"`
	TempID    string `json:"tempId,omitempty"`
}

// TypingPayload is the outbound TYPING body.
type TypingPayload struct {
	ChatID   string `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}
