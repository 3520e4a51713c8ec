package roster

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/geovannymcode/chatflow-client/internal/bus"
	"github.com/geovannymcode/chatflow-client/internal/model"
)

// Directory is the slice of the REST client the roster uses.
type Directory interface {
	ListChats(ctx context.Context, page, size int) ([]model.Chat, bool, error)
	CreateDirectChat(ctx context.Context, otherUserID string) (*model.Chat, error)
	CreateGroupChat(ctx context.Context, name string, participantIDs []string) (*model.Chat, error)
}

// Cache persists roster entries between sessions.
type Cache interface {
	UpsertChat(c *model.Chat) error
	ListChats(limit, offset int) ([]model.Chat, error)
}

// Roster is the ordered conversation list: newest activity first, entries
// with no activity timestamp last in stable order. Unread counts pause for
// the active conversation.
type Roster struct {
	mu      sync.Mutex
	chats   []model.Chat
	active  string
	selfID  string
	page    int
	hasMore bool
	loading bool

	dir      Directory
	cache    Cache
	logger   *zap.Logger
	pageSize int
}

func New(dir Directory, cache Cache, pageSize int, logger *zap.Logger) *Roster {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Roster{dir: dir, cache: cache, logger: logger, pageSize: pageSize, hasMore: true}
}

// SetSelfUser tells the roster which sender is the local user, so their own
// confirmed messages never bump unread counts.
func (r *Roster) SetSelfUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selfID = userID
}

// Start subscribes the roster to confirmed-message events: every confirmed
// message refreshes the preview and, for inactive chats from other users,
// bumps the unread count.
func (r *Roster) Start(ctx context.Context, b *bus.Bus) {
	b.SubscribeFunc(ctx, "message.", 64, func(evt bus.Event) {
		if evt.Kind != bus.KindMessageConfirmed {
			return
		}
		m, ok := evt.Payload.(model.Message)
		if !ok {
			return
		}
		r.UpdatePreview(m.ChatID, m.Content, m.CreatedAt)
		r.mu.Lock()
		self := r.selfID
		r.mu.Unlock()
		if self == "" || m.SenderID != self {
			r.IncrementUnread(m.ChatID)
		}
	})
}

// Hydrate fills the roster from the local cache before the first fetch.
func (r *Roster) Hydrate() {
	if r.cache == nil {
		return
	}
	chats, err := r.cache.ListChats(r.pageSize, 0)
	if err != nil {
		r.logger.Warn("roster hydration failed", zap.Error(err))
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range chats {
		r.mergeLocked(c)
	}
	r.sortLocked()
}

// FetchChats loads a roster page from the server. reset starts over from the
// first page; otherwise the next page is appended. No-op while a fetch is in
// flight or, without reset, when no more pages remain.
func (r *Roster) FetchChats(ctx context.Context, reset bool) error {
	r.mu.Lock()
	if r.loading || (!reset && !r.hasMore) {
		r.mu.Unlock()
		return nil
	}
	r.loading = true
	page := r.page
	if reset {
		page = 0
	}
	r.mu.Unlock()

	chats, hasMore, err := r.dir.ListChats(ctx, page, r.pageSize)

	r.mu.Lock()
	r.loading = false
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("fetch chats: %w", err)
	}
	for _, c := range chats {
		r.mergeLocked(c)
	}
	r.hasMore = hasMore
	r.page = page + 1
	r.sortLocked()
	r.mu.Unlock()

	r.persist(chats)
	return nil
}

// mergeLocked inserts or refreshes one entry, keeping local unread state for
// known chats when the server copy carries none.
func (r *Roster) mergeLocked(c model.Chat) {
	for i := range r.chats {
		if r.chats[i].ID == c.ID {
			if c.UnreadCount == 0 {
				c.UnreadCount = r.chats[i].UnreadCount
			}
			if c.LastMessageAt.Before(r.chats[i].LastMessageAt) {
				c.LastMessageAt = r.chats[i].LastMessageAt
				c.LastMessagePreview = r.chats[i].LastMessagePreview
			}
			r.chats[i] = c
			return
		}
	}
	r.chats = append(r.chats, c)
}

// UpdatePreview overwrites the chat's preview and recency, then re-sorts.
// An unknown chat gets a minimal entry so a first message is never lost.
func (r *Roster) UpdatePreview(chatID, preview string, at time.Time) {
	r.mu.Lock()
	found := false
	for i := range r.chats {
		if r.chats[i].ID == chatID {
			r.chats[i].LastMessagePreview = preview
			r.chats[i].LastMessageAt = at
			found = true
			break
		}
	}
	if !found {
		r.chats = append(r.chats, model.Chat{
			ID:                 chatID,
			Type:               model.ChatDirect,
			LastMessagePreview: preview,
			LastMessageAt:      at,
		})
	}
	r.sortLocked()
	var snapshot *model.Chat
	for i := range r.chats {
		if r.chats[i].ID == chatID {
			c := r.chats[i]
			snapshot = &c
			break
		}
	}
	r.mu.Unlock()

	if snapshot != nil {
		r.persist([]model.Chat{*snapshot})
	}
}

// IncrementUnread bumps the unread count unless the chat is active.
func (r *Roster) IncrementUnread(chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chatID == r.active {
		return
	}
	for i := range r.chats {
		if r.chats[i].ID == chatID {
			r.chats[i].UnreadCount++
			return
		}
	}
}

// ClearUnread zeroes the unread count.
func (r *Roster) ClearUnread(chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.chats {
		if r.chats[i].ID == chatID {
			r.chats[i].UnreadCount = 0
			return
		}
	}
}

// SetActive marks the chat as being viewed and clears its unread count.
// An empty id deactivates.
func (r *Roster) SetActive(chatID string) {
	r.mu.Lock()
	r.active = chatID
	if chatID != "" {
		for i := range r.chats {
			if r.chats[i].ID == chatID {
				r.chats[i].UnreadCount = 0
				break
			}
		}
	}
	r.mu.Unlock()
}

// ActiveChat returns the currently viewed chat id, or empty.
func (r *Roster) ActiveChat() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// AddChat inserts a chat if it is not already present.
func (r *Roster) AddChat(c model.Chat) {
	r.mu.Lock()
	r.mergeLocked(c)
	r.sortLocked()
	r.mu.Unlock()
	r.persist([]model.Chat{c})
}

// CreateDirectChat opens a one-to-one chat through the server and adds it.
func (r *Roster) CreateDirectChat(ctx context.Context, otherUserID string) (*model.Chat, error) {
	chat, err := r.dir.CreateDirectChat(ctx, otherUserID)
	if err != nil {
		return nil, fmt.Errorf("create direct chat: %w", err)
	}
	r.AddChat(*chat)
	return chat, nil
}

// CreateGroupChat creates a group through the server and adds it.
func (r *Roster) CreateGroupChat(ctx context.Context, name string, participantIDs []string) (*model.Chat, error) {
	chat, err := r.dir.CreateGroupChat(ctx, name, participantIDs)
	if err != nil {
		return nil, fmt.Errorf("create group chat: %w", err)
	}
	r.AddChat(*chat)
	return chat, nil
}

// Chats returns a snapshot in display order.
func (r *Roster) Chats() []model.Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Chat, len(r.chats))
	copy(out, r.chats)
	return out
}

// HasMore reports whether more roster pages remain server-side.
func (r *Roster) HasMore() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasMore
}

// sortLocked orders by recency descending. Zero timestamps are the earliest
// possible time, so they land at the tail; SliceStable keeps their relative
// order.
func (r *Roster) sortLocked() {
	sort.SliceStable(r.chats, func(i, j int) bool {
		return r.chats[i].LastMessageAt.After(r.chats[j].LastMessageAt)
	})
}

func (r *Roster) persist(chats []model.Chat) {
	if r.cache == nil {
		return
	}
	for i := range chats {
		if err := r.cache.UpsertChat(&chats[i]); err != nil {
			r.logger.Warn("chat cache upsert failed", zap.String("id", chats[i].ID), zap.Error(err))
		}
	}
}
