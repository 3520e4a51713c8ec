package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geovannymcode/chatflow-client/internal/bus"
	"github.com/geovannymcode/chatflow-client/internal/model"
)

// typingEntry holds one remote user's typing state for one chat. The timer
// is canceled and replaced on repeated activity, never stacked.
type typingEntry struct {
	userName string
	timer    *time.Timer
}

// Tracker keeps the live presence snapshot and per-chat typing sets.
// Presence is last-write-wins; a user absent from the map is OFFLINE.
type Tracker struct {
	mu       sync.Mutex
	presence map[string]model.Presence
	typing   map[string]map[string]*typingEntry
	expiry   time.Duration
}

func NewTracker(expiry time.Duration) *Tracker {
	if expiry <= 0 {
		expiry = 5 * time.Second
	}
	return &Tracker{
		presence: make(map[string]model.Presence),
		typing:   make(map[string]map[string]*typingEntry),
		expiry:   expiry,
	}
}

// Start subscribes the tracker to inbound presence and typing events.
func (t *Tracker) Start(ctx context.Context, b *bus.Bus) {
	b.SubscribeFunc(ctx, "wire.", 64, func(evt bus.Event) {
		switch evt.Kind {
		case bus.KindWirePresence:
			if n, ok := evt.Payload.(*model.PresenceNotification); ok {
				t.UpdatePresence(n)
			}
		case bus.KindWireTyping:
			if n, ok := evt.Payload.(*model.TypingNotification); ok {
				t.SetTyping(n)
			}
		}
	})
}

// UpdatePresence overwrites the user's snapshot. Last write wins.
func (t *Tracker) UpdatePresence(n *model.PresenceNotification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.presence[n.UserID] = model.Presence{
		UserID:     n.UserID,
		Status:     n.Status,
		LastSeenAt: n.LastSeenAt,
	}
}

// GetPresence returns the last known snapshot, or OFFLINE for unknown users.
func (t *Tracker) GetPresence(userID string) model.Presence {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.presence[userID]; ok {
		return p
	}
	return model.Presence{UserID: userID, Status: model.PresenceOffline}
}

// SetTyping adds or removes the user from the chat's typing set. Each add
// schedules an expiry removal that defends against a dropped stop event;
// a fresh typing event resets that user's window.
func (t *Tracker) SetTyping(n *model.TypingNotification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	chat := t.typing[n.ChatID]
	if !n.IsTyping {
		if chat != nil {
			if e, ok := chat[n.UserID]; ok {
				e.timer.Stop()
				delete(chat, n.UserID)
			}
		}
		return
	}

	if chat == nil {
		chat = make(map[string]*typingEntry)
		t.typing[n.ChatID] = chat
	}
	if e, ok := chat[n.UserID]; ok {
		e.timer.Stop()
	}
	chatID, userID := n.ChatID, n.UserID
	entry := &typingEntry{userName: n.UserName}
	entry.timer = time.AfterFunc(t.expiry, func() {
		t.expire(chatID, userID, entry)
	})
	chat[n.UserID] = entry
}

// expire removes the entry the fired timer belongs to. Stop cannot win
// against a timer that already fired and is waiting on the mutex, so the
// callback must verify it still owns the slot: a superseding typing event
// may have replaced the entry in the meantime.
func (t *Tracker) expire(chatID, userID string, entry *typingEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if chat, ok := t.typing[chatID]; ok && chat[userID] == entry {
		delete(chat, userID)
	}
}

// TypingUsers returns the userIds currently typing in the chat, sorted.
func (t *Tracker) TypingUsers(chatID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	chat := t.typing[chatID]
	if len(chat) == 0 {
		return nil
	}
	out := make([]string, 0, len(chat))
	for id := range chat {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// TypingNames returns the display names currently typing in the chat, sorted.
func (t *Tracker) TypingNames(chatID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	chat := t.typing[chatID]
	if len(chat) == 0 {
		return nil
	}
	out := make([]string, 0, len(chat))
	for _, e := range chat {
		out = append(out, e.userName)
	}
	sort.Strings(out)
	return out
}

// Reset drops all typing timers and presence state. Used on disconnect so a
// stale snapshot does not survive across sessions.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, chat := range t.typing {
		for _, e := range chat {
			e.timer.Stop()
		}
	}
	t.typing = make(map[string]map[string]*typingEntry)
	t.presence = make(map[string]model.Presence)
}
