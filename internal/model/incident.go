package model

import "time"

// Incident status constants as the backend reports them.
const (
	StatusPendiente = "pendiente"
	StatusEnProceso = "en_proceso"
	StatusResuelto  = "resuelto"
	StatusDevuelto  = "devuelto"
)

// Incident is a support ticket as served by the helpdesk API.
type Incident struct {
	// ID is the incident's identifier in the backend.
	ID int `json:"id"`

	// Folio is the human-facing ticket number.
	Folio string `json:"folio"`

	// Title is the short summary entered by the reporter.
	Title string `json:"title"`

	// Description is the full problem description.
	Description string `json:"description"`

	// Status is one of the Status* constants.
	Status string `json:"status"`

	// AssignedToID is the agent currently assigned, zero if unassigned.
	AssignedToID int `json:"assigned_to_id"`

	// AssignedToName is the assigned agent's display name.
	AssignedToName string `json:"assigned_to_name"`

	// ReportedByName is the reporter's display name.
	ReportedByName string `json:"reported_by_name"`

	// CreatedAt is when the incident was opened.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the incident last changed (status, assignment).
	UpdatedAt time.Time `json:"updated_at"`
}
