package daemon

import (
	"context"

	"github.com/geovannymcode/chatflow-client/internal/conn"
	"github.com/geovannymcode/chatflow-client/internal/model"
	"github.com/geovannymcode/chatflow-client/internal/msgsync"
	"github.com/geovannymcode/chatflow-client/internal/presence"
	"github.com/geovannymcode/chatflow-client/internal/roster"
	"github.com/geovannymcode/chatflow-client/internal/status"
	"github.com/geovannymcode/chatflow-client/internal/store"
)

// Client is the operation surface a frontend drives. It delegates to the
// owning components; nothing here holds state of its own.
type Client struct {
	mgr      *conn.Manager
	engine   *msgsync.Engine
	tracker  *presence.Tracker
	notifier *presence.Notifier
	roster   *roster.Roster
	machine  *status.Machine
	db       *store.DB
}

func NewClient(mgr *conn.Manager, engine *msgsync.Engine, tracker *presence.Tracker, notifier *presence.Notifier, rst *roster.Roster, machine *status.Machine, db *store.DB) *Client {
	return &Client{
		mgr:      mgr,
		engine:   engine,
		tracker:  tracker,
		notifier: notifier,
		roster:   rst,
		machine:  machine,
		db:       db,
	}
}

// Connection

func (c *Client) Connect() { c.mgr.Connect() }
func (c *Client) Disconnect() { c.mgr.Disconnect() }
func (c *Client) State() status.State { return c.machine.Current() }
func (c *Client) IsConnected() bool { return c.mgr.IsConnected() }

// Credentials. Setting tokens while disconnected arms the next Connect;
// clearing them ends the session server-side on the next reconnect attempt.

func (c *Client) SetTokens(access, refresh string) error { return c.db.SetTokens(access, refresh) }
func (c *Client) ClearTokens() error { return c.db.ClearTokens() }

// Messages

func (c *Client) FetchMessages(ctx context.Context, chatID string, reset bool) error {
	return c.engine.FetchMessages(ctx, chatID, reset)
}

func (c *Client) FetchMoreMessages(ctx context.Context, chatID string) error {
	return c.engine.FetchMoreMessages(ctx, chatID)
}

func (c *Client) SendMessage(chatID, content string) model.PendingMessage {
	return c.engine.SendMessage(chatID, content)
}

func (c *Client) SendReply(chatID, content, replyToID string) model.PendingMessage {
	return c.engine.SendReply(chatID, content, replyToID)
}

func (c *Client) RetryPending(tempID string) bool { return c.engine.RetryPending(tempID) }
func (c *Client) RemovePending(tempID string) { c.engine.RemovePending(tempID) }

func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	return c.engine.DeleteMessage(ctx, chatID, messageID)
}

func (c *Client) EditMessage(ctx context.Context, chatID, messageID, content string) error {
	return c.engine.EditMessage(ctx, chatID, messageID, content)
}

func (c *Client) MarkAsRead(chatID string) error { return c.engine.MarkAsRead(chatID) }

func (c *Client) Messages(chatID string) []model.Message { return c.engine.Messages(chatID) }
func (c *Client) Pending(chatID string) []model.PendingMessage { return c.engine.Pending(chatID) }
func (c *Client) HasMoreMessages(chatID string) bool { return c.engine.HasMore(chatID) }

// Presence and typing

func (c *Client) Presence(userID string) model.Presence { return c.tracker.GetPresence(userID) }
func (c *Client) TypingUsers(chatID string) []string { return c.tracker.TypingUsers(chatID) }
func (c *Client) TypingNames(chatID string) []string { return c.tracker.TypingNames(chatID) }

func (c *Client) Typing(chatID string) { c.notifier.Typing(chatID) }
func (c *Client) StopTyping(chatID string) { c.notifier.StopTyping(chatID) }

// Roster

func (c *Client) FetchChats(ctx context.Context, reset bool) error {
	return c.roster.FetchChats(ctx, reset)
}

func (c *Client) Chats() []model.Chat { return c.roster.Chats() }
func (c *Client) HasMoreChats() bool { return c.roster.HasMore() }
func (c *Client) ActiveChat() string { return c.roster.ActiveChat() }
func (c *Client) SetSelfUser(id string) { c.roster.SetSelfUser(id) }

// OpenChat marks the chat active and clears its unread count.
func (c *Client) OpenChat(chatID string) {
	c.roster.SetActive(chatID)
	_ = c.engine.MarkAsRead(chatID)
}

// CloseChat deactivates the current chat and stops any local typing signal.
func (c *Client) CloseChat() {
	if active := c.roster.ActiveChat(); active != "" {
		c.notifier.StopTyping(active)
	}
	c.roster.SetActive("")
}

func (c *Client) CreateDirectChat(ctx context.Context, otherUserID string) (*model.Chat, error) {
	return c.roster.CreateDirectChat(ctx, otherUserID)
}

func (c *Client) CreateGroupChat(ctx context.Context, name string, participantIDs []string) (*model.Chat, error) {
	return c.roster.CreateGroupChat(ctx, name, participantIDs)
}
