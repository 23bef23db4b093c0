package model

import "time"

// Notification is an in-app notification surfaced when an incident changes.
// Notifications are ephemeral client state: they are lost on restart and the
// authoritative unread counts live server-side, re-derived every poll.
type Notification struct {
	// ID is the locally generated identifier for this notification.
	ID string `json:"id"`

	// IncidentID links the notification to the originating incident.
	IncidentID int `json:"incident_id"`

	// Title is the short notification headline.
	Title string `json:"title"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Read indicates whether the agent has seen this notification.
	// It only ever transitions false to true.
	Read bool `json:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}
