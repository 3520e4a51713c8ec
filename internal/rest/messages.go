package rest

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/geovannymcode/chatflow-client/internal/model"
	"github.com/geovannymcode/chatflow-client/internal/wire"
)

// ListMessages loads a page of history newest first. The backend returns a
// plain list, so hasMore is derived from a full page.
func (c *Client) ListMessages(ctx context.Context, chatID string, offset, limit int) ([]model.Message, bool, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var raw []json.RawMessage
	if err := c.do(ctx, "GET", "/api/chats/"+chatID+"/messages", q, nil, &raw); err != nil {
		return nil, false, err
	}
	items := c.decodeMessages(raw)
	return items, len(raw) == limit, nil
}

// ListMessagesBefore loads messages strictly older than the given timestamp.
func (c *Client) ListMessagesBefore(ctx context.Context, chatID string, before time.Time, limit int) ([]model.Message, error) {
	q := url.Values{}
	q.Set("before", before.UTC().Format(time.RFC3339Nano))
	q.Set("limit", strconv.Itoa(limit))

	var raw []json.RawMessage
	if err := c.do(ctx, "GET", "/api/chats/"+chatID+"/messages", q, nil, &raw); err != nil {
		return nil, err
	}
	return c.decodeMessages(raw), nil
}

// DeleteMessage removes a message server-side.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	return c.do(ctx, "DELETE", "/api/chats/"+chatID+"/messages/"+messageID, nil, nil, nil)
}

// decodeMessages normalizes the backend DTOs, sharing the nested-sender
// flattening with the websocket path. Undecodable items are dropped.
func (c *Client) decodeMessages(raw []json.RawMessage) []model.Message {
	items := make([]model.Message, 0, len(raw))
	for _, r := range raw {
		evt, err := wire.ParseMessage(r)
		if err != nil {
			c.logger.Warn("bad message in history response", zap.Error(err))
			continue
		}
		items = append(items, evt.Message)
	}
	return items
}
