package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Principal is the resolved identity of the currently authenticated user.
// It drives every authorization decision in the client.
type Principal struct {
	ID          ID        `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	Status      Status    `json:"status"`
	IsSuperuser *bool     `json:"is_superuser,omitempty"`
	IsStaff     *bool     `json:"is_staff,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Superuser reports whether the superuser flag is present and set.
func (p *Principal) Superuser() bool {
	return p != nil && p.IsSuperuser != nil && *p.IsSuperuser
}

// Clone returns a deep copy of p. A nil principal clones to nil.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	c := *p
	if p.IsSuperuser != nil {
		v := *p.IsSuperuser
		c.IsSuperuser = &v
	}
	if p.IsStaff != nil {
		v := *p.IsStaff
		c.IsStaff = &v
	}
	return &c
}

// UserAccount is the management-console view of another user.
// Role is fixed at creation; Status is toggled by admins.
type UserAccount struct {
	ID          ID        `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	Status      Status    `json:"status"`
	IsSuperuser *bool     `json:"is_superuser,omitempty"`
	IsStaff     *bool     `json:"is_staff,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RawUser is a user object as returned by the backend. Optional fields are
// pointers so that an absent field is distinguishable from false or "".
type RawUser struct {
	ID                 ID         `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	Role               *string    `json:"role,omitempty"`
	IsStaff            *bool      `json:"is_staff,omitempty"`
	IsSuperuser        *bool      `json:"is_superuser,omitempty"`
	IsActive           *bool      `json:"is_active,omitempty"`
	AvatarURL          *string    `json:"avatar_url,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
	SourceRoleOverride *string    `json:"__source_role_override,omitempty"`
}

// UnmarshalJSON decodes a backend user, accepting date_joined as an alias
// for created_at.
func (u *RawUser) UnmarshalJSON(data []byte) error {
	type plain RawUser
	aux := struct {
		*plain
		DateJoined *time.Time `json:"date_joined,omitempty"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode user: %w", err)
	}
	if u.CreatedAt == nil && aux.DateJoined != nil {
		u.CreatedAt = aux.DateJoined
	}
	return nil
}

// WithOverride returns a copy of u whose source role override is set to r.
func (u RawUser) WithOverride(r Role) RawUser {
	s := string(r)
	u.SourceRoleOverride = &s
	return u
}

// CreateAccountRequest holds parameters for an admin-created account.
type CreateAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// Validate checks that the request is well-formed.
func (r *CreateAccountRequest) Validate() error {
	if r.Username == "" {
		return ErrValidation("username is required")
	}
	if r.Email == "" {
		return ErrValidation("email is required")
	}
	if len(r.Password) < 8 {
		return ErrValidation("password must be at least 8 characters")
	}
	if r.Role == "" {
		r.Role = RoleDeveloper
	}
	if !r.Role.Valid() {
		return ErrValidation("role must be 'admin' or 'developer'")
	}
	return nil
}

// SignupRequest holds parameters for self-service registration.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks that the request is well-formed.
func (r *SignupRequest) Validate() error {
	if r.Username == "" {
		return ErrValidation("username is required")
	}
	if r.Email == "" {
		return ErrValidation("email is required")
	}
	if len(r.Password) < 8 {
		return ErrValidation("password must be at least 8 characters")
	}
	return nil
}
