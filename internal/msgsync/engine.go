package msgsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geovannymcode/chatflow-client/internal/bus"
	"github.com/geovannymcode/chatflow-client/internal/model"
	"github.com/geovannymcode/chatflow-client/internal/wire"
)

// ErrUnsupported is returned by operations the current server variant does
// not implement. Callers must not treat these as silent successes.
var ErrUnsupported = errors.New("operation not supported by server")

// HistoryFetcher loads confirmed history over REST.
type HistoryFetcher interface {
	ListMessages(ctx context.Context, chatID string, offset, limit int) ([]model.Message, bool, error)
	ListMessagesBefore(ctx context.Context, chatID string, before time.Time, limit int) ([]model.Message, error)
}

// Deleter removes a message server-side.
type Deleter interface {
	DeleteMessage(ctx context.Context, chatID, messageID string) error
}

// Sender is the slice of the connection manager the engine writes through.
type Sender interface {
	Send(eventType string, payload any)
}

// Cache is the local write-through store. Persistence failures are logged,
// never surfaced: the in-memory timeline is the source of truth for the
// session and the cache only warms the next one.
type Cache interface {
	UpsertMessage(m *model.Message) error
	MarkMessageDeleted(id string) error
}

// conversation holds one chat's timeline. confirmed is newest-first; pending
// entries render after all confirmed ones regardless of timestamp.
type conversation struct {
	confirmed []model.Message
	ids       map[string]struct{}
	pending   []model.PendingMessage
	loading   bool
	hasMore   bool
	fetched   bool
}

// Engine keeps per-conversation timelines correct under concurrent local
// sends, inbound pushes, and paginated backfill. Mutation goes only through
// the exported operations; merge is append-only and idempotent.
type Engine struct {
	mu       sync.Mutex
	convs    map[string]*conversation
	fetcher  HistoryFetcher
	deleter  Deleter
	sender   Sender
	cache    Cache
	bus      *bus.Bus
	logger   *zap.Logger
	pageSize int
}

func NewEngine(fetcher HistoryFetcher, deleter Deleter, sender Sender, cache Cache, b *bus.Bus, pageSize int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Engine{
		convs:    make(map[string]*conversation),
		fetcher:  fetcher,
		deleter:  deleter,
		sender:   sender,
		cache:    cache,
		bus:      b,
		logger:   logger,
		pageSize: pageSize,
	}
}

// Start subscribes the engine to inbound protocol events. It returns
// immediately; delivery runs until ctx is canceled.
func (e *Engine) Start(ctx context.Context) {
	e.bus.SubscribeFunc(ctx, "wire.", 64, func(evt bus.Event) {
		switch evt.Kind {
		case bus.KindWireMessage:
			if me, ok := evt.Payload.(*wire.MessageEvent); ok {
				e.OnInboundMessage(me)
			}
		case bus.KindWireMessageDeleted:
			if de, ok := evt.Payload.(*wire.DeletedEvent); ok {
				e.applyDeleted(de.ChatID, de.MessageID)
			}
		case bus.KindWireAck:
			if ack, ok := evt.Payload.(*model.MessageAck); ok {
				e.onAck(ack)
			}
		}
	})
}

func (e *Engine) conv(chatID string) *conversation {
	c, ok := e.convs[chatID]
	if !ok {
		c = &conversation{ids: make(map[string]struct{}), hasMore: true}
		e.convs[chatID] = c
	}
	return c
}

// FetchMessages loads the most recent page, or with reset false the next
// page by item-count offset. Merging the same page twice is idempotent.
func (e *Engine) FetchMessages(ctx context.Context, chatID string, reset bool) error {
	e.mu.Lock()
	c := e.conv(chatID)
	if c.loading {
		e.mu.Unlock()
		return nil
	}
	c.loading = true
	offset := len(c.confirmed)
	if reset {
		offset = 0
	}
	e.mu.Unlock()

	items, hasMore, err := e.fetcher.ListMessages(ctx, chatID, offset, e.pageSize)

	e.mu.Lock()
	c.loading = false
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("fetch messages for %s: %w", chatID, err)
	}
	if reset {
		c.confirmed = c.confirmed[:0]
		c.ids = make(map[string]struct{})
	}
	e.appendLocked(c, items)
	c.hasMore = hasMore
	c.fetched = true
	e.mu.Unlock()

	e.persist(items)
	return nil
}

// FetchMoreMessages backfills strictly older history using the oldest held
// message's timestamp as the exclusive upper bound. No-op while a fetch is
// in flight or when the server has signaled the end of history.
func (e *Engine) FetchMoreMessages(ctx context.Context, chatID string) error {
	e.mu.Lock()
	c := e.conv(chatID)
	if c.loading || !c.hasMore || len(c.confirmed) == 0 {
		e.mu.Unlock()
		return nil
	}
	c.loading = true
	before := c.confirmed[len(c.confirmed)-1].CreatedAt
	e.mu.Unlock()

	items, err := e.fetcher.ListMessagesBefore(ctx, chatID, before, e.pageSize)

	e.mu.Lock()
	c.loading = false
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("fetch older messages for %s: %w", chatID, err)
	}
	e.appendLocked(c, items)
	c.hasMore = len(items) == e.pageSize
	e.mu.Unlock()

	e.persist(items)
	return nil
}

// appendLocked merges items at the tail, first occurrence wins.
func (e *Engine) appendLocked(c *conversation, items []model.Message) {
	for _, m := range items {
		if _, dup := c.ids[m.ID]; dup {
			continue
		}
		c.ids[m.ID] = struct{}{}
		c.confirmed = append(c.confirmed, m)
	}
}

// SendMessage appends an optimistic pending entry and hands the wire send to
// the connection manager. It returns immediately with the generated tempId;
// confirmation or failure arrives later through the event bus.
func (e *Engine) SendMessage(chatID, content string) model.PendingMessage {
	return e.send(chatID, content, model.MessageText, "")
}

// SendReply is SendMessage with a reply reference.
func (e *Engine) SendReply(chatID, content, replyToID string) model.PendingMessage {
	return e.send(chatID, content, model.MessageText, replyToID)
}

func (e *Engine) send(chatID, content string, msgType model.MessageType, replyToID string) model.PendingMessage {
	p := model.PendingMessage{
		TempID:    "temp-" + uuid.NewString(),
		ChatID:    chatID,
		Content:   content,
		Type:      msgType,
		ReplyToID: replyToID,
		CreatedAt: time.Now(),
		Status:    model.PendingInFlight,
	}

	e.mu.Lock()
	c := e.conv(chatID)
	c.pending = append(c.pending, p)
	e.mu.Unlock()

	e.sender.Send(wire.TypeNewMessage, wire.SendMessagePayload{
		ChatID:    chatID,
		Content:   content,
		Type:      string(msgType),
		ReplyToID: replyToID,
		TempID:    p.TempID,
	})
	e.publish(bus.KindMessagePending, p)
	return p
}

// OnInboundMessage merges a server-confirmed message: duplicates by id are
// discarded, a matching pending tempId is reconciled away, and the confirmed
// message is inserted at the head of the timeline.
func (e *Engine) OnInboundMessage(evt *wire.MessageEvent) {
	m := evt.Message

	e.mu.Lock()
	c := e.conv(m.ChatID)
	if _, dup := c.ids[m.ID]; dup {
		e.mu.Unlock()
		return
	}
	if evt.TempID != "" {
		e.removePendingLocked(c, evt.TempID)
	}
	c.ids[m.ID] = struct{}{}
	c.confirmed = append([]model.Message{m}, c.confirmed...)
	e.mu.Unlock()

	e.persist([]model.Message{m})
	e.publish(bus.KindMessageConfirmed, m)
}

// removePendingLocked drops the pending entry with the given tempId.
// A tempId with no matching entry is expected and benign.
func (e *Engine) removePendingLocked(c *conversation, tempID string) {
	for i, p := range c.pending {
		if p.TempID == tempID {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// MarkFailed transitions a pending entry to FAILED, keeping it around for
// retry or dismissal.
func (e *Engine) MarkFailed(tempID string) {
	e.mu.Lock()
	var failed *model.PendingMessage
	for _, c := range e.convs {
		for i := range c.pending {
			if c.pending[i].TempID == tempID {
				c.pending[i].Status = model.PendingFailed
				failed = &c.pending[i]
				break
			}
		}
	}
	var snapshot model.PendingMessage
	if failed != nil {
		snapshot = *failed
	}
	e.mu.Unlock()

	if failed != nil {
		e.publish(bus.KindMessageFailed, snapshot)
	}
}

// RetryPending re-sends a FAILED entry with its original tempId so a late
// confirmation of the first attempt still reconciles.
func (e *Engine) RetryPending(tempID string) bool {
	e.mu.Lock()
	var retry *model.PendingMessage
	for _, c := range e.convs {
		for i := range c.pending {
			if c.pending[i].TempID == tempID && c.pending[i].Status == model.PendingFailed {
				c.pending[i].Status = model.PendingInFlight
				retry = &c.pending[i]
				break
			}
		}
	}
	var snapshot model.PendingMessage
	if retry != nil {
		snapshot = *retry
	}
	e.mu.Unlock()

	if retry == nil {
		return false
	}
	e.sender.Send(wire.TypeNewMessage, wire.SendMessagePayload{
		ChatID:    snapshot.ChatID,
		Content:   snapshot.Content,
		Type:      string(snapshot.Type),
		ReplyToID: snapshot.ReplyToID,
		TempID:    snapshot.TempID,
	})
	e.publish(bus.KindMessagePending, snapshot)
	return true
}

// RemovePending dismisses a pending entry without sending anything.
func (e *Engine) RemovePending(tempID string) {
	e.mu.Lock()
	for _, c := range e.convs {
		e.removePendingLocked(c, tempID)
	}
	e.mu.Unlock()
}

// DeleteMessage removes a message server-side and marks the local copy
// deleted. The inbound MESSAGE_DELETED broadcast applies the same mark
// idempotently on other sessions.
func (e *Engine) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	if err := e.deleter.DeleteMessage(ctx, chatID, messageID); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	e.applyDeleted(chatID, messageID)
	return nil
}

// EditMessage is not implemented by the server.
func (e *Engine) EditMessage(ctx context.Context, chatID, messageID, content string) error {
	return fmt.Errorf("edit message: %w", ErrUnsupported)
}

// MarkAsRead is a deliberate no-op: the server variant has no read receipts
// and callers treat their absence as acceptable degradation.
func (e *Engine) MarkAsRead(chatID string) error {
	return nil
}

func (e *Engine) applyDeleted(chatID, messageID string) {
	e.mu.Lock()
	c := e.conv(chatID)
	var deleted bool
	for i := range c.confirmed {
		if c.confirmed[i].ID == messageID {
			if !c.confirmed[i].IsDeleted {
				c.confirmed[i].IsDeleted = true
				c.confirmed[i].Content = ""
				deleted = true
			}
			break
		}
	}
	e.mu.Unlock()

	if e.cache != nil {
		if err := e.cache.MarkMessageDeleted(messageID); err != nil {
			e.logger.Warn("cache delete failed", zap.String("id", messageID), zap.Error(err))
		}
	}
	if deleted {
		e.publish(bus.KindMessageDeleted, wire.DeletedEvent{ChatID: chatID, MessageID: messageID})
	}
}

func (e *Engine) onAck(ack *model.MessageAck) {
	if ack.Status == "ERROR" {
		e.MarkFailed(ack.TempID)
	}
	// SENT and DELIVERED are benign: the authoritative record arrives via
	// the NEW_MESSAGE broadcast and reconciles the pending entry there.
}

// Messages returns the confirmed timeline newest first.
func (e *Engine) Messages(chatID string) []model.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.conv(chatID)
	out := make([]model.Message, len(c.confirmed))
	copy(out, c.confirmed)
	return out
}

// Pending returns the pending queue in send order.
func (e *Engine) Pending(chatID string) []model.PendingMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.conv(chatID)
	out := make([]model.PendingMessage, len(c.pending))
	copy(out, c.pending)
	return out
}

// HasMore reports whether older history remains for the chat.
func (e *Engine) HasMore(chatID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conv(chatID).hasMore
}

func (e *Engine) persist(items []model.Message) {
	if e.cache == nil {
		return
	}
	for i := range items {
		if err := e.cache.UpsertMessage(&items[i]); err != nil {
			e.logger.Warn("cache upsert failed", zap.String("id", items[i].ID), zap.Error(err))
		}
	}
}

func (e *Engine) publish(kind string, payload any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
