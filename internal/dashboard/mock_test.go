package dashboard

import (
	"context"

	"cyberxpert/internal/domain"
)

// === Backend Mock ===

type mockBackend struct {
	meFn                   func(ctx context.Context) (*domain.RawUser, error)
	listTestsFn            func(ctx context.Context) ([]domain.Record, error)
	listReportsFn          func(ctx context.Context) ([]domain.Record, error)
	listDevelopersFn       func(ctx context.Context) ([]domain.RawUser, error)
	listAdminsFn           func(ctx context.Context) ([]domain.RawUser, error)
	createAccountFn        func(ctx context.Context, req domain.CreateAccountRequest) (*domain.RawUser, error)
	setAccountStatusFn     func(ctx context.Context, id domain.ID, status domain.Status) (*domain.RawUser, error)
	deleteAccountFn        func(ctx context.Context, id domain.ID) error
	markReportReadFn       func(ctx context.Context, id domain.ID) error
	addressVulnerabilityFn func(ctx context.Context, recordID, vulnID domain.ID) error
}

var _ domain.Backend = (*mockBackend)(nil)

func (m *mockBackend) Login(context.Context, string, string) (domain.TokenPair, *domain.RawUser, error) {
	panic("unexpected call to mockBackend.Login")
}

func (m *mockBackend) Signup(context.Context, domain.SignupRequest) (domain.TokenPair, *domain.RawUser, error) {
	panic("unexpected call to mockBackend.Signup")
}

func (m *mockBackend) Logout(context.Context, string) error {
	panic("unexpected call to mockBackend.Logout")
}

func (m *mockBackend) RefreshToken(context.Context, string) (domain.TokenPair, error) {
	panic("unexpected call to mockBackend.RefreshToken")
}

func (m *mockBackend) Me(ctx context.Context) (*domain.RawUser, error) {
	if m.meFn != nil {
		return m.meFn(ctx)
	}
	panic("unexpected call to mockBackend.Me")
}

func (m *mockBackend) ListTests(ctx context.Context) ([]domain.Record, error) {
	if m.listTestsFn != nil {
		return m.listTestsFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) ListReports(ctx context.Context) ([]domain.Record, error) {
	if m.listReportsFn != nil {
		return m.listReportsFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) ListDevelopers(ctx context.Context) ([]domain.RawUser, error) {
	if m.listDevelopersFn != nil {
		return m.listDevelopersFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) ListAdmins(ctx context.Context) ([]domain.RawUser, error) {
	if m.listAdminsFn != nil {
		return m.listAdminsFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.RawUser, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(ctx, req)
	}
	panic("unexpected call to mockBackend.CreateAccount")
}

func (m *mockBackend) SetAccountStatus(ctx context.Context, id domain.ID, status domain.Status) (*domain.RawUser, error) {
	if m.setAccountStatusFn != nil {
		return m.setAccountStatusFn(ctx, id, status)
	}
	panic("unexpected call to mockBackend.SetAccountStatus")
}

func (m *mockBackend) DeleteAccount(ctx context.Context, id domain.ID) error {
	if m.deleteAccountFn != nil {
		return m.deleteAccountFn(ctx, id)
	}
	panic("unexpected call to mockBackend.DeleteAccount")
}

func (m *mockBackend) MarkReportRead(ctx context.Context, id domain.ID) error {
	if m.markReportReadFn != nil {
		return m.markReportReadFn(ctx, id)
	}
	panic("unexpected call to mockBackend.MarkReportRead")
}

func (m *mockBackend) AddressVulnerability(ctx context.Context, recordID, vulnID domain.ID) error {
	if m.addressVulnerabilityFn != nil {
		return m.addressVulnerabilityFn(ctx, recordID, vulnID)
	}
	panic("unexpected call to mockBackend.AddressVulnerability")
}
