package visibility

import "cyberxpert/internal/domain"

// Actions lists the administrative actions available on one account.
type Actions struct {
	ToggleStatus bool `json:"toggle_status"`
	Delete       bool `json:"delete"`
}

// AccountActions returns what p may do to target. Only admins act on
// accounts, and never on their own.
func AccountActions(p *domain.Principal, target domain.UserAccount) Actions {
	if !p.IsAdmin() || p.ID == target.ID {
		return Actions{}
	}
	// Only superusers may manage other admins.
	if target.Role == domain.RoleAdmin && !p.Superuser() {
		return Actions{}
	}
	return Actions{ToggleStatus: true, Delete: true}
}

// CanCreateAccount reports whether p may create an account with role.
// Creating another admin needs the superuser flag.
func CanCreateAccount(p *domain.Principal, role domain.Role) bool {
	if !p.IsAdmin() {
		return false
	}
	if role == domain.RoleAdmin {
		return p.Superuser()
	}
	return role == domain.RoleDeveloper
}

// CanAddressVulnerability reports whether p may mark findings on record as
// addressed: admins, or the record's creator.
func CanAddressVulnerability(p *domain.Principal, record domain.Record) bool {
	if p == nil {
		return false
	}
	return p.IsAdmin() || record.OwnedBy(p.ID)
}
