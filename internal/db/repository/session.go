// Package repository implements domain ports on top of SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cyberxpert/internal/db/crypto"
	"cyberxpert/internal/domain"
)

var _ domain.SessionStore = (*SessionRepo)(nil)

// SessionRepo implements domain.SessionStore on the session_entries table.
// When a sealer is configured every value is encrypted at rest.
type SessionRepo struct {
	db     *sql.DB
	sealer *crypto.Sealer
}

// NewSessionRepo creates a SessionRepo. sealer may be nil.
func NewSessionRepo(db *sql.DB, sealer *crypto.Sealer) *SessionRepo {
	return &SessionRepo{db: db, sealer: sealer}
}

// Get implements domain.SessionStore.
func (r *SessionRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM session_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session entry %q: %w", key, err)
	}
	if r.sealer == nil {
		return value, true, nil
	}
	plain, err := r.sealer.Open(key, value)
	if errors.Is(err, crypto.ErrNotSealed) {
		// Written before encryption was enabled.
		return value, true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session entry %q: %w", key, err)
	}
	return plain, true, nil
}

// SetAll implements domain.SessionStore. All entries are written in one
// transaction.
func (r *SessionRepo) SetAll(ctx context.Context, entries map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO session_entries (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare session write: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for key, value := range entries {
		stored := value
		if r.sealer != nil {
			stored, err = r.sealer.Seal(key, value)
			if err != nil {
				return fmt.Errorf("seal session entry %q: %w", key, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, key, stored); err != nil {
			return fmt.Errorf("write session entry %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session write: %w", err)
	}
	return nil
}

// Delete implements domain.SessionStore.
func (r *SessionRepo) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_entries WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete session entry %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session delete: %w", err)
	}
	return nil
}
