package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cyberxpert/internal/db"
	"cyberxpert/internal/db/crypto"
	"cyberxpert/internal/db/repository"
	"cyberxpert/internal/domain"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Options selects and configures a session store.
type Options struct {
	Backend string // memory, file or sqlite (default file)
	Path    string // file or database path; required unless Backend is memory
	// EncryptionKey is a hex-encoded 32-byte key sealing sqlite values at
	// rest. Empty stores plaintext.
	EncryptionKey string
}

// Store is an opened session store together with whatever it holds open.
type Store struct {
	domain.SessionStore
	close func() error
}

// Close releases the resources behind the store.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open creates the session store described by opts.
func Open(ctx context.Context, opts Options) (*Store, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendFile
	}
	switch backend {
	case BackendMemory:
		return &Store{SessionStore: NewMemoryStore()}, nil
	case BackendFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("session file path is required")
		}
		return &Store{SessionStore: NewFileStore(opts.Path)}, nil
	case BackendSQLite:
		return openSQLite(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown session backend %q (want memory, file or sqlite)", opts.Backend)
	}
}

func openSQLite(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("session database path is required")
	}
	var sealer *crypto.Sealer
	if opts.EncryptionKey != "" {
		s, err := crypto.NewSealer(opts.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("session encryption: %w", err)
		}
		sealer = s
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	conn, err := db.OpenSQLite(ctx, opts.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate session database: %w", err)
	}
	return &Store{SessionStore: repository.NewSessionRepo(conn, sealer), close: conn.Close}, nil
}
