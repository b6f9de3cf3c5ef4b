// Package identity derives the canonical Principal from backend payloads and
// keeps it consistent with the cached session token.
package identity

import (
	"strings"

	"cyberxpert/internal/domain"
)

// ResolveRole returns the single role for a backend user. Rules are applied
// in order and the first match wins:
//  1. a valid source-role override;
//  2. a role string equal to "admin" in any case;
//  3. a set staff or superuser flag;
//  4. developer.
//
// Every caller that needs a role from a RawUser goes through here.
func ResolveRole(raw domain.RawUser) domain.Role {
	for _, rule := range roleRules {
		if role, ok := rule(raw); ok {
			return role
		}
	}
	return domain.RoleDeveloper
}

type roleRule func(domain.RawUser) (domain.Role, bool)

var roleRules = []roleRule{
	overrideRule,
	roleStringRule,
	privilegeFlagRule,
}

func overrideRule(raw domain.RawUser) (domain.Role, bool) {
	if raw.SourceRoleOverride == nil {
		return "", false
	}
	return domain.ParseRole(*raw.SourceRoleOverride)
}

// roleStringRule only recognises admin. Other values, including the legacy
// "Dev" spelling, fall through to the privilege flags.
func roleStringRule(raw domain.RawUser) (domain.Role, bool) {
	if raw.Role == nil {
		return "", false
	}
	if strings.EqualFold(strings.TrimSpace(*raw.Role), string(domain.RoleAdmin)) {
		return domain.RoleAdmin, true
	}
	return "", false
}

func privilegeFlagRule(raw domain.RawUser) (domain.Role, bool) {
	if isTrue(raw.IsStaff) || isTrue(raw.IsSuperuser) {
		return domain.RoleAdmin, true
	}
	return "", false
}

// ResolveStatus maps the backend activity flag onto a Status.
// Only an explicit false suspends.
func ResolveStatus(raw domain.RawUser) domain.Status {
	if raw.IsActive != nil && !*raw.IsActive {
		return domain.StatusSuspended
	}
	return domain.StatusActive
}

// ResolvePrincipal builds a Principal from a backend user. It returns nil
// when raw is nil.
func ResolvePrincipal(raw *domain.RawUser) *domain.Principal {
	if raw == nil {
		return nil
	}
	p := &domain.Principal{
		ID:          raw.ID,
		Username:    raw.Username,
		Email:       raw.Email,
		Role:        ResolveRole(*raw),
		Status:      ResolveStatus(*raw),
		IsSuperuser: copyBool(raw.IsSuperuser),
		IsStaff:     copyBool(raw.IsStaff),
	}
	if raw.AvatarURL != nil {
		p.AvatarURL = *raw.AvatarURL
	}
	if raw.CreatedAt != nil {
		p.CreatedAt = *raw.CreatedAt
	}
	return p
}

// ResolveAccount builds the management-console view of a backend user.
func ResolveAccount(raw domain.RawUser) domain.UserAccount {
	a := domain.UserAccount{
		ID:          raw.ID,
		Username:    raw.Username,
		Email:       raw.Email,
		Role:        ResolveRole(raw),
		Status:      ResolveStatus(raw),
		IsSuperuser: copyBool(raw.IsSuperuser),
		IsStaff:     copyBool(raw.IsStaff),
	}
	if raw.AvatarURL != nil {
		a.AvatarURL = *raw.AvatarURL
	}
	if raw.CreatedAt != nil {
		a.CreatedAt = *raw.CreatedAt
	}
	return a
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
