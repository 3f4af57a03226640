package models

import "fmt"

// Role is the closed set of admin roles known to the system.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleEditor        Role = "editor"
)

// ParseRole validates a role string against the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdministrator, RoleEditor:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// User is a static directory entry. The directory is configuration, not a
// mutable table: password hashes come from the environment and roles are
// fixed at startup.
type User struct {
	Username     string
	PasswordHash string
	Role         Role
	DisplayName  string
}

// Identity is the resolved result of a successful credential or session check.
type Identity struct {
	Username    string `json:"username"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
}

// Identity returns the directory entry's identity view.
func (u *User) Identity() Identity {
	return Identity{
		Username:    u.Username,
		Role:        u.Role,
		DisplayName: u.DisplayName,
	}
}

// IsAdministrator reports whether the identity may perform administrative
// actions (user management, audit review).
func (i Identity) IsAdministrator() bool {
	return i.Role == RoleAdministrator
}
