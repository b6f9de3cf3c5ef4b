package dashboard

import (
	"context"

	"cyberxpert/internal/domain"
	"cyberxpert/internal/identity"
	"cyberxpert/internal/visibility"
)

// CreateAccount creates an account if the principal may create one with the
// requested role.
func (s *Service) CreateAccount(ctx context.Context, sess Session, req domain.CreateAccountRequest) (*domain.UserAccount, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !visibility.CanCreateAccount(sess.Principal, req.Role) {
		s.logDenied(ctx, sess, "create_account", req.Username)
		return nil, domain.ErrAccessDenied("not allowed to create %s accounts", req.Role)
	}
	raw, err := sess.Backend.CreateAccount(ctx, req)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(sess.Principal.ID)
	acct := identity.ResolveAccount(raw.WithOverride(req.Role))
	s.logger.InfoContext(ctx, "account created", "principal_id", sess.Principal.ID, "account_id", acct.ID, "role", acct.Role)
	return &acct, nil
}

// SetAccountStatus suspends or reactivates an account.
func (s *Service) SetAccountStatus(ctx context.Context, sess Session, id domain.ID, status domain.Status) (*domain.UserAccount, error) {
	if !status.Valid() {
		return nil, domain.ErrValidation("status must be 'active' or 'suspended'")
	}
	target, err := s.findAccount(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if !visibility.AccountActions(sess.Principal, *target).ToggleStatus {
		s.logDenied(ctx, sess, "set_account_status", string(id))
		return nil, domain.ErrAccessDenied("not allowed to change the status of account %s", id)
	}
	raw, err := sess.Backend.SetAccountStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(sess.Principal.ID)
	// The account keeps the role it was listed under.
	acct := identity.ResolveAccount(raw.WithOverride(target.Role))
	if raw.IsActive == nil {
		acct.Status = status
	}
	s.logger.InfoContext(ctx, "account status changed", "principal_id", sess.Principal.ID, "account_id", id, "status", acct.Status)
	return &acct, nil
}

// DeleteAccount removes an account.
func (s *Service) DeleteAccount(ctx context.Context, sess Session, id domain.ID) error {
	target, err := s.findAccount(ctx, sess, id)
	if err != nil {
		return err
	}
	if !visibility.AccountActions(sess.Principal, *target).Delete {
		s.logDenied(ctx, sess, "delete_account", string(id))
		return domain.ErrAccessDenied("not allowed to delete account %s", id)
	}
	if err := sess.Backend.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(sess.Principal.ID)
	s.logger.InfoContext(ctx, "account deleted", "principal_id", sess.Principal.ID, "account_id", id)
	return nil
}

// AddressVulnerability marks a finding as addressed on a test the principal
// may act on.
func (s *Service) AddressVulnerability(ctx context.Context, sess Session, recordID, vulnID domain.ID) error {
	tests, err := s.Tests(ctx, sess)
	if err != nil {
		return err
	}
	var record *domain.Record
	for i := range tests {
		if tests[i].ID == recordID {
			record = &tests[i]
			break
		}
	}
	if record == nil {
		return domain.ErrNotFound("test %s not found", recordID)
	}
	if !visibility.CanAddressVulnerability(sess.Principal, *record) {
		s.logDenied(ctx, sess, "address_vulnerability", string(recordID))
		return domain.ErrAccessDenied("not allowed to address findings on test %s", recordID)
	}
	found := false
	for _, v := range record.Vulnerabilities {
		if v.ID == vulnID {
			if v.Addressed {
				return domain.ErrConflict("vulnerability %s is already addressed", vulnID)
			}
			found = true
			break
		}
	}
	if !found {
		return domain.ErrNotFound("vulnerability %s not found on test %s", vulnID, recordID)
	}
	if err := sess.Backend.AddressVulnerability(ctx, recordID, vulnID); err != nil {
		return err
	}
	s.cache.Invalidate(sess.Principal.ID)
	return nil
}

// MarkReportRead marks a visible report as read.
func (s *Service) MarkReportRead(ctx context.Context, sess Session, id domain.ID) error {
	reports, err := s.Reports(ctx, sess)
	if err != nil {
		return err
	}
	for _, r := range reports {
		if r.ID != id {
			continue
		}
		if r.Read {
			return nil
		}
		if err := sess.Backend.MarkReportRead(ctx, id); err != nil {
			return err
		}
		s.cache.Invalidate(sess.Principal.ID)
		return nil
	}
	return domain.ErrNotFound("report %s not found", id)
}

func (s *Service) findAccount(ctx context.Context, sess Session, id domain.ID) (*domain.UserAccount, error) {
	if !sess.Principal.IsAdmin() {
		return nil, domain.ErrAccessDenied("account management requires the admin role")
	}
	part, err := s.Accounts(ctx, sess)
	if err != nil {
		return nil, err
	}
	for _, list := range [][]domain.UserAccount{part.Developers, part.Admins} {
		for i := range list {
			if list[i].ID == id {
				return &list[i], nil
			}
		}
	}
	return nil, domain.ErrNotFound("account %s not found", id)
}

func (s *Service) logDenied(ctx context.Context, sess Session, action, target string) {
	var id domain.ID
	if sess.Principal != nil {
		id = sess.Principal.ID
	}
	s.logger.WarnContext(ctx, "action denied", "principal_id", id, "action", action, "target", target)
}
