// Package visibility decides which records, accounts and menu entries a
// principal may see. Every function here is pure: results depend only on the
// arguments.
package visibility

import (
	"cyberxpert/internal/domain"
	"cyberxpert/internal/identity"
)

// VisibleRecords returns the records p may view, preserving input order.
// Admins see everything. Other principals see the records they created plus
// shared records with no creator. A nil principal sees nothing.
func VisibleRecords(p *domain.Principal, records []domain.Record) []domain.Record {
	if p == nil {
		return []domain.Record{}
	}
	if p.IsAdmin() {
		out := make([]domain.Record, len(records))
		copy(out, records)
		return out
	}
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if r.Shared() || r.OwnedBy(p.ID) {
			out = append(out, r)
		}
	}
	return out
}

// PartitionAccounts splits backend users into developers and admins using
// identity.ResolveRole, so an account with no role signal lands among the
// developers. Only admins manage accounts; anyone else gets empty lists.
func PartitionAccounts(p *domain.Principal, accounts []domain.RawUser) domain.AccountPartition {
	part := domain.AccountPartition{
		Developers: []domain.UserAccount{},
		Admins:     []domain.UserAccount{},
	}
	if !p.IsAdmin() {
		return part
	}
	for _, raw := range accounts {
		acct := identity.ResolveAccount(raw)
		switch acct.Role {
		case domain.RoleAdmin:
			part.Admins = append(part.Admins, acct)
		default:
			part.Developers = append(part.Developers, acct)
		}
	}
	return part
}

// CountUnread returns the number of reports not yet read.
func CountUnread(reports []domain.Record) int {
	n := 0
	for _, r := range reports {
		if !r.Read {
			n++
		}
	}
	return n
}

// CountPending returns the number of accounts awaiting activation.
func CountPending(part domain.AccountPartition) int {
	n := 0
	for _, list := range [][]domain.UserAccount{part.Developers, part.Admins} {
		for _, a := range list {
			if a.Status == domain.StatusSuspended {
				n++
			}
		}
	}
	return n
}
