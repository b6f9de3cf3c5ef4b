// Package cache keeps per-principal snapshots of backend collections so
// repeated dashboard views do not refetch everything.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"cyberxpert/internal/domain"
)

// Snapshot is the unfiltered data fetched for one principal.
type Snapshot struct {
	Tests     []domain.Record
	Reports   []domain.Record
	Accounts  []domain.RawUser
	FetchedAt time.Time
}

// Store caches snapshots with a fixed TTL.
type Store struct {
	items  *gocache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Store. Expired snapshots are purged every 2*ttl.
func New(ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		items:  gocache.New(ttl, 2*ttl),
		logger: logger,
		now:    time.Now,
	}
}

// Load returns the cached snapshot for p or fetches a fresh one. Tests and
// reports are fetched concurrently; account lists are fetched only for
// admins. A nil principal has nothing to load.
func (s *Store) Load(ctx context.Context, p *domain.Principal, fetcher domain.RecordFetcher) (*Snapshot, error) {
	if p == nil {
		return &Snapshot{}, nil
	}
	key := cacheKey(p)
	if v, ok := s.items.Get(key); ok {
		return v.(*Snapshot), nil
	}

	snap, err := s.fetch(ctx, p, fetcher)
	if err != nil {
		return nil, err
	}
	s.items.Set(key, snap, gocache.DefaultExpiration)
	s.logger.DebugContext(ctx, "snapshot cached",
		"principal_id", p.ID, "tests", len(snap.Tests), "reports", len(snap.Reports), "accounts", len(snap.Accounts))
	return snap, nil
}

func (s *Store) fetch(ctx context.Context, p *domain.Principal, fetcher domain.RecordFetcher) (*Snapshot, error) {
	var (
		snap   = &Snapshot{FetchedAt: s.now()}
		devs   []domain.RawUser
		admins []domain.RawUser
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tests, err := fetcher.ListTests(gctx)
		if err != nil {
			return fmt.Errorf("list tests: %w", err)
		}
		snap.Tests = tests
		return nil
	})
	g.Go(func() error {
		reports, err := fetcher.ListReports(gctx)
		if err != nil {
			return fmt.Errorf("list reports: %w", err)
		}
		snap.Reports = reports
		return nil
	})
	if p.IsAdmin() {
		g.Go(func() error {
			var err error
			if devs, err = fetcher.ListDevelopers(gctx); err != nil {
				return fmt.Errorf("list developers: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			if admins, err = fetcher.ListAdmins(gctx); err != nil {
				return fmt.Errorf("list admins: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.Accounts = make([]domain.RawUser, 0, len(devs)+len(admins))
	snap.Accounts = append(snap.Accounts, devs...)
	snap.Accounts = append(snap.Accounts, admins...)
	return snap, nil
}

// Invalidate drops every snapshot held for the principal id.
func (s *Store) Invalidate(id domain.ID) {
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleDeveloper} {
		s.items.Delete(string(id) + "|" + string(role))
	}
}

// Flush drops all snapshots.
func (s *Store) Flush() {
	s.items.Flush()
}

// Len returns the number of cached snapshots, including expired ones not yet
// purged.
func (s *Store) Len() int {
	return s.items.ItemCount()
}

// Snapshots are keyed by role as well as id so a role change never serves
// data fetched under the previous role.
func cacheKey(p *domain.Principal) string {
	return string(p.ID) + "|" + string(p.Role)
}
