package model

import "time"

// MessageType classifies message content.
type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageImage  MessageType = "IMAGE"
	MessageFile   MessageType = "FILE"
	MessageSystem MessageType = "SYSTEM"
)

// Message is a server-confirmed message. Identity is ID, assigned by the server.
type Message struct {
	ID         string
	ChatID     string
	SenderID   string
	SenderName string
	Content    string
	Type       MessageType
	ReplyToID  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	IsDeleted  bool
	IsEdited   bool
}

// PendingStatus tracks the fate of an optimistic send.
type PendingStatus string

const (
	PendingInFlight PendingStatus = "IN_FLIGHT"
	PendingFailed   PendingStatus = "FAILED"
)

// PendingMessage is a locally-originated message awaiting server confirmation.
// It is keyed by TempID, a client-generated id, never by a server id.
type PendingMessage struct {
	TempID    string
	ChatID    string
	Content   string
	Type      MessageType
	ReplyToID string
	CreatedAt time.Time
	Status    PendingStatus
}

// ChatType tells direct conversations from groups.
type ChatType string

const (
	ChatDirect ChatType = "DIRECT"
	ChatGroup  ChatType = "GROUP"
)

// Chat is a roster entry with preview metadata.
type Chat struct {
	ID                 string
	Name               string
	Type               ChatType
	LastMessagePreview string
	LastMessageAt      time.Time
	UnreadCount        int
	ParticipantCount   int
	OtherParticipantID string
}

// PresenceStatus is a user's live connectivity status.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "ONLINE"
	PresenceAway    PresenceStatus = "AWAY"
	PresenceOffline PresenceStatus = "OFFLINE"
)

// Presence is the last known presence snapshot for a user.
// A user absent from the presence map is equivalent to OFFLINE.
type Presence struct {
	UserID     string
	Status     PresenceStatus
	LastSeenAt time.Time
}

// PresenceNotification is an inbound presence update.
type PresenceNotification struct {
	UserID     string
	Status     PresenceStatus
	LastSeenAt time.Time
}

// TypingNotification is an inbound typing start/stop signal.
type TypingNotification struct {
	ChatID   string
	UserID   string
	UserName string
	IsTyping bool
}

// MessageAck reports the server's verdict on a sent tempId.
type MessageAck struct {
	TempID    string
	MessageID string
	CreatedAt time.Time
	Status    string // SENT, DELIVERED, ERROR
}
