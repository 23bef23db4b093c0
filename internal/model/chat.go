package model

import "time"

// Conversation is one (agent, end-user) chat thread in the directory.
// There is exactly one conversation per counterpart pair.
type Conversation struct {
	// ID is the conversation's identifier in the backend.
	ID int `json:"id"`

	// CounterpartID is the other participant's user ID.
	CounterpartID int `json:"counterpart_id"`

	// CounterpartName is the other participant's display name.
	CounterpartName string `json:"counterpart_name"`

	// LastMessage is the most recent message body, for directory preview.
	LastMessage string `json:"last_message"`

	// LastMessageAt is when the most recent message was sent.
	LastMessageAt time.Time `json:"last_message_at"`

	// UnreadCount is the server-side count of unread messages. The client
	// mirrors it and optimistically zeroes it when the thread is opened.
	UnreadCount int `json:"unread_count"`
}

// Message is a single chat message. Messages are immutable once created;
// display order is by CreatedAt, never by arrival order, because the push
// channel and a history reload can deliver the same message in either order.
type Message struct {
	// ID is the server-assigned message identifier.
	ID int `json:"id"`

	// FromUserID is the sender's user ID.
	FromUserID int `json:"from_user_id"`

	// ToUserID is the recipient's user ID.
	ToUserID int `json:"to_user_id"`

	// Body is the message text.
	Body string `json:"body"`

	// CreatedAt is the server-side send timestamp.
	CreatedAt time.Time `json:"created_at"`
}
