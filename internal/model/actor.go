package model

// Role identifies what kind of account is signed in. Role gating in this
// client is presentation-only; the backend enforces every permission at the
// data boundary.
type Role string

const (
	RoleTecnico     Role = "tecnico"
	RoleAdmin       Role = "admin"
	RoleCoordinador Role = "coordinador"
	RoleUsuario     Role = "usuario"
)

// Supervisory reports whether the role receives escalation alerts.
func (r Role) Supervisory() bool {
	return r == RoleAdmin || r == RoleCoordinador
}

// Actor is the signed-in account the widgets are mounted for.
type Actor struct {
	// ID is the account's user ID in the backend.
	ID int `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Role determines which surfaces are presented.
	Role Role `json:"role"`
}
