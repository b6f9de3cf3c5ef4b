package domain

import "strings"

// Role is the closed set of application roles.
type Role string

// Known roles. Lowercase is the canonical vocabulary.
const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
)

// ParseRole maps s case-insensitively onto a known Role.
// The second return value is false when s names no known role.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RoleAdmin):
		return RoleAdmin, true
	case string(RoleDeveloper):
		return RoleDeveloper, true
	default:
		return "", false
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleDeveloper
}

// Status is the activity state of an account.
type Status string

// Account statuses.
const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusSuspended
}
