package rest

import (
	"context"
	"net/url"
	"strconv"

	"github.com/geovannymcode/chatflow-client/internal/model"
	"github.com/geovannymcode/chatflow-client/internal/wire"
)

type chatDto struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Type               string `json:"type"`
	LastMessagePreview string `json:"lastMessagePreview"`
	LastMessageAt      string `json:"lastMessageAt"`
	UnreadCount        int    `json:"unreadCount"`
	ParticipantCount   int    `json:"participantCount"`
	OtherParticipantID string `json:"otherParticipantId"`
}

func (d chatDto) toModel() model.Chat {
	ct := model.ChatType(d.Type)
	if ct == "" {
		ct = model.ChatDirect
	}
	return model.Chat{
		ID:                 d.ID,
		Name:               d.Name,
		Type:               ct,
		LastMessagePreview: d.LastMessagePreview,
		LastMessageAt:      wire.ParseTimestamp(d.LastMessageAt),
		UnreadCount:        d.UnreadCount,
		ParticipantCount:   d.ParticipantCount,
		OtherParticipantID: d.OtherParticipantID,
	}
}

// ListChats loads a page of the roster. hasMore follows the full-page rule.
func (c *Client) ListChats(ctx context.Context, page, size int) ([]model.Chat, bool, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var dtos []chatDto
	if err := c.do(ctx, "GET", "/api/chats", q, nil, &dtos); err != nil {
		return nil, false, err
	}
	chats := make([]model.Chat, 0, len(dtos))
	for _, d := range dtos {
		chats = append(chats, d.toModel())
	}
	return chats, len(dtos) == size, nil
}

// GetChat loads a single roster entry.
func (c *Client) GetChat(ctx context.Context, chatID string) (*model.Chat, error) {
	var dto chatDto
	if err := c.do(ctx, "GET", "/api/chats/"+chatID, nil, nil, &dto); err != nil {
		return nil, err
	}
	chat := dto.toModel()
	return &chat, nil
}

// CreateDirectChat opens (or returns the existing) one-to-one chat.
func (c *Client) CreateDirectChat(ctx context.Context, otherUserID string) (*model.Chat, error) {
	body := map[string]string{"userId": otherUserID}
	var dto chatDto
	if err := c.do(ctx, "POST", "/api/chats/direct", nil, body, &dto); err != nil {
		return nil, err
	}
	chat := dto.toModel()
	return &chat, nil
}

// CreateGroupChat creates a named group with the given participants.
func (c *Client) CreateGroupChat(ctx context.Context, name string, participantIDs []string) (*model.Chat, error) {
	body := map[string]any{"name": name, "participantIds": participantIDs}
	var dto chatDto
	if err := c.do(ctx, "POST", "/api/chats/group", nil, body, &dto); err != nil {
		return nil, err
	}
	chat := dto.toModel()
	return &chat, nil
}
