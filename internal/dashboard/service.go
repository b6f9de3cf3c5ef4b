// Package dashboard assembles what a signed-in principal sees and gates the
// actions they may take.
package dashboard

import (
	"context"
	"log/slog"

	"cyberxpert/internal/cache"
	"cyberxpert/internal/domain"
	"cyberxpert/internal/identity"
	"cyberxpert/internal/visibility"
)

// Session pairs a resolved principal with a backend client authenticated as
// that principal.
type Session struct {
	Principal *domain.Principal
	Backend   domain.Backend
}

// View is everything the dashboard renders for one principal.
type View struct {
	Principal *domain.Principal       `json:"principal"`
	Tests     []domain.Record         `json:"tests"`
	Reports   []domain.Record         `json:"reports"`
	Accounts  domain.AccountPartition `json:"accounts"`
	Menu      []domain.MenuEntry      `json:"menu"`
	Summary   visibility.Summary      `json:"summary"`
}

// Service provides the dashboard read model and admin actions.
type Service struct {
	cache  *cache.Store
	menu   *visibility.Menu
	logger *slog.Logger
}

// NewService creates a dashboard Service. A nil menu uses the built-in one.
func NewService(store *cache.Store, menu *visibility.Menu, logger *slog.Logger) *Service {
	if menu == nil {
		menu = visibility.DefaultMenu()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: store, menu: menu, logger: logger}
}

// Authenticate resolves the principal behind a bearer token: the backend's
// user object reconciled with the token's claims.
func (s *Service) Authenticate(ctx context.Context, backend domain.Backend, claims *domain.TokenClaims) (*Session, error) {
	if claims == nil {
		return nil, domain.ErrUnauthenticated("missing token claims")
	}
	raw, err := backend.Me(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{Principal: identity.Reconcile(claims, raw), Backend: backend}, nil
}

// View builds the full dashboard for sess.
func (s *Service) View(ctx context.Context, sess Session) (*View, error) {
	snap, err := s.cache.Load(ctx, sess.Principal, sess.Backend)
	if err != nil {
		return nil, err
	}
	p := sess.Principal
	tests := visibility.VisibleRecords(p, snap.Tests)
	reports := visibility.VisibleRecords(p, snap.Reports)
	accounts := visibility.PartitionAccounts(p, snap.Accounts)

	return &View{
		Principal: p.Clone(),
		Tests:     tests,
		Reports:   reports,
		Accounts:  accounts,
		Menu: s.menu.Build(p, domain.Badges{
			UnreadReports:   visibility.CountUnread(reports),
			PendingAccounts: visibility.CountPending(accounts),
		}),
		Summary: visibility.Summarize(tests),
	}, nil
}

// Tests returns the tests visible to the principal.
func (s *Service) Tests(ctx context.Context, sess Session) ([]domain.Record, error) {
	snap, err := s.cache.Load(ctx, sess.Principal, sess.Backend)
	if err != nil {
		return nil, err
	}
	return visibility.VisibleRecords(sess.Principal, snap.Tests), nil
}

// Reports returns the reports visible to the principal.
func (s *Service) Reports(ctx context.Context, sess Session) ([]domain.Record, error) {
	snap, err := s.cache.Load(ctx, sess.Principal, sess.Backend)
	if err != nil {
		return nil, err
	}
	return visibility.VisibleRecords(sess.Principal, snap.Reports), nil
}

// Accounts returns the managed accounts split by role. Non-admins receive
// empty lists.
func (s *Service) Accounts(ctx context.Context, sess Session) (domain.AccountPartition, error) {
	if !sess.Principal.IsAdmin() {
		return visibility.PartitionAccounts(sess.Principal, nil), nil
	}
	snap, err := s.cache.Load(ctx, sess.Principal, sess.Backend)
	if err != nil {
		return domain.AccountPartition{}, err
	}
	return visibility.PartitionAccounts(sess.Principal, snap.Accounts), nil
}

// Menu returns the navigation entries for the principal with badges.
func (s *Service) Menu(ctx context.Context, sess Session) ([]domain.MenuEntry, error) {
	v, err := s.View(ctx, sess)
	if err != nil {
		return nil, err
	}
	return v.Menu, nil
}

// Summary returns the dashboard counters over the visible tests.
func (s *Service) Summary(ctx context.Context, sess Session) (visibility.Summary, error) {
	tests, err := s.Tests(ctx, sess)
	if err != nil {
		return visibility.Summary{}, err
	}
	return visibility.Summarize(tests), nil
}

// Forget drops cached data for the principal with id.
func (s *Service) Forget(id domain.ID) {
	s.cache.Invalidate(id)
}
