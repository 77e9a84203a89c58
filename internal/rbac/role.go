package rbac

import (
	"errors"
	"fmt"
)

// ErrUnknownRole is returned when a value is not one of the closed set of roles.
var ErrUnknownRole = errors.New("unknown role")

// Role is a member's standing inside an organization.
// The string values are the stored representation.
type Role string

const (
	RoleOwner    Role = "OWNER"
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
)

// Roles lists every valid role from most to least privileged.
var Roles = []Role{RoleOwner, RoleAdmin, RoleManager, RoleEmployee}

// ParseRole validates a stored or submitted value into a Role.
// Matching is exact; "admin" is not ADMIN. Anything outside the closed set returns ErrUnknownRole
// and is never mapped to a default.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// Rank returns the position of r in the hierarchy, higher is more privileged.
// Invalid roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleEmployee:
		return 1
	default:
		return 0
	}
}

func (r Role) String() string {
	return string(r)
}
