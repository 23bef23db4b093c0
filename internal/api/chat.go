package api

import (
	"context"
	"fmt"

	"github.com/hannysoft/mesa-client/internal/model"
)

// AdminInfo identifies the administrator an anonymous end-user chats with.
type AdminInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Conversations fetches the chat directory for the signed-in agent, most
// recently active first.
func (c *Client) Conversations(ctx context.Context) ([]model.Conversation, error) {
	var conversations []model.Conversation
	if err := c.Get(ctx, "/api/chat/conversations", &conversations); err != nil {
		return nil, fmt.Errorf("fetching conversations: %w", err)
	}
	return conversations, nil
}

// Messages fetches the full message history with a counterpart, ordered by
// creation time ascending.
func (c *Client) Messages(
	ctx context.Context,
	counterpartID int,
) ([]model.Message, error) {
	var messages []model.Message
	path := fmt.Sprintf("/api/chat/messages/%d", counterpartID)
	if err := c.Get(ctx, path, &messages); err != nil {
		return nil, fmt.Errorf("fetching messages with %d: %w", counterpartID, err)
	}
	return messages, nil
}

// SendMessage posts a chat message to a counterpart and returns the stored
// message with its server-assigned ID and timestamp.
func (c *Client) SendMessage(
	ctx context.Context,
	counterpartID int,
	body string,
) (*model.Message, error) {
	payload := map[string]interface{}{
		"to_user_id": counterpartID,
		"body":       body,
	}
	var msg model.Message
	if err := c.Post(ctx, "/api/chat/messages", payload, &msg); err != nil {
		return nil, fmt.Errorf("sending message to %d: %w", counterpartID, err)
	}
	return &msg, nil
}

// UnreadCount fetches the total number of unread chat messages across all
// conversations.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	if err := c.Get(ctx, "/api/chat/unread", &result); err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}
	return result.Count, nil
}

// MarkConversationRead marks every message from the counterpart as read.
func (c *Client) MarkConversationRead(ctx context.Context, counterpartID int) error {
	path := fmt.Sprintf("/api/chat/read/%d", counterpartID)
	if err := c.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking conversation %d read: %w", counterpartID, err)
	}
	return nil
}

// GetAdminInfo resolves the administrator counterpart for the end-user
// chat widget.
func (c *Client) GetAdminInfo(ctx context.Context) (*AdminInfo, error) {
	var info AdminInfo
	if err := c.Get(ctx, "/api/chat/admin", &info); err != nil {
		return nil, fmt.Errorf("resolving chat admin: %w", err)
	}
	return &info, nil
}
