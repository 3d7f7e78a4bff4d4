package entity

import (
	"time"

	"github.com/google/uuid"
)

// Role classifies an actor. Roles are exhaustive and mutually exclusive:
// each actor holds exactly one.
type Role string

const (
	RoleCreator  Role = "CREATOR"
	RoleApprover Role = "APPROVER"
	RoleViewer   Role = "VIEWER"
	// RoleAdmin is an oversight role: read access everywhere, mutation
	// actions nowhere.
	RoleAdmin Role = "ADMIN"
)

var validRoles = map[Role]bool{
	RoleCreator:  true,
	RoleApprover: true,
	RoleViewer:   true,
	RoleAdmin:    true,
}

// IsValid returns true if the role is one of the defined roles
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Actor represents an authenticated identity supplied by the external
// identity collaborator. The engine trusts the (id, role) pair it is given.
type Actor struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}
