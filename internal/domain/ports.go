package domain

import "context"

// SessionStore is the durable key/value medium holding the client session.
// SetAll writes every entry or none of them.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetAll(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Backend is the remote CyberXpert REST API as seen by the client.
// Implemented by backend.Client.
type Backend interface {
	Login(ctx context.Context, email, password string) (TokenPair, *RawUser, error)
	Signup(ctx context.Context, req SignupRequest) (TokenPair, *RawUser, error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error)
	Me(ctx context.Context) (*RawUser, error)
	ListTests(ctx context.Context) ([]Record, error)
	ListReports(ctx context.Context) ([]Record, error)
	ListDevelopers(ctx context.Context) ([]RawUser, error)
	ListAdmins(ctx context.Context) ([]RawUser, error)
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*RawUser, error)
	SetAccountStatus(ctx context.Context, id ID, status Status) (*RawUser, error)
	DeleteAccount(ctx context.Context, id ID) error
	MarkReportRead(ctx context.Context, id ID) error
	AddressVulnerability(ctx context.Context, recordID, vulnID ID) error
}

// RecordFetcher is the read-only subset of Backend used by the data cache.
type RecordFetcher interface {
	ListTests(ctx context.Context) ([]Record, error)
	ListReports(ctx context.Context) ([]Record, error)
	ListDevelopers(ctx context.Context) ([]RawUser, error)
	ListAdmins(ctx context.Context) ([]RawUser, error)
}
