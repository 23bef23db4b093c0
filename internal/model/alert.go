package model

import "time"

// Alert status lifecycle. Alerts are created by supervisors on the server;
// this client only observes them and acknowledges or dismisses.
const (
	AlertActive       = "active"
	AlertAcknowledged = "acknowledged"
	AlertDismissed    = "dismissed"
)

// Alert is a supervisory escalation message held server-side.
type Alert struct {
	// ID is the alert's identifier in the backend.
	ID int `json:"id"`

	// Message is the alert text shown to the agent.
	Message string `json:"message"`

	// SentByName is the display name of the supervisor who raised it.
	SentByName string `json:"sent_by_name"`

	// SentByRole is the role of the sender (admin, coordinador).
	SentByRole string `json:"sent_by_role"`

	// Status is one of the Alert* constants.
	Status string `json:"status"`

	// CreatedAt is when the alert was raised.
	CreatedAt time.Time `json:"created_at"`
}

// IsActive reports whether the alert still requires acknowledgment.
func (a Alert) IsActive() bool {
	return a.Status == AlertActive
}
