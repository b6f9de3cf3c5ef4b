package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberxpert/internal/domain"
)

func boolPtr(b bool) *bool { return &b }

func makeToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeBackend serves the subset of the CyberXpert API the CLI talks to.
type fakeBackend struct {
	adminTok   string
	devTok     string
	expiredTok string
	freshTok   string

	mu    sync.Mutex
	calls []string
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if r.Body != nil && r.Method != http.MethodGet {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	route := r.Method + " " + r.URL.Path

	switch route {
	case "POST /api/auth/login/":
		if body["password"] != "secret123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		switch body["email"] {
		case "admin@example.com":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"access": f.adminTok, "refresh": "refresh-admin",
				"user": domain.RawUser{ID: "1", Username: "root", Email: "admin@example.com", IsStaff: boolPtr(true)},
			})
		case "expired@example.com":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"access": f.expiredTok, "refresh": "refresh-expired",
				"user": domain.RawUser{ID: "5", Username: "dev"},
			})
		default:
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"tokens": map[string]string{"access": f.devTok, "refresh": "refresh-dev"},
				"user":   domain.RawUser{ID: "5", Username: "dev", Email: "dev@example.com"},
			})
		}
		return
	case "POST /api/auth/token/refresh/":
		f.record("refresh " + body["refresh"])
		if body["refresh"] != "refresh-expired" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is blacklisted"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": f.freshTok})
		return
	case "POST /api/auth/logout/":
		f.record("logout " + body["refresh"])
		w.WriteHeader(http.StatusOK)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	var user domain.RawUser
	switch token {
	case f.adminTok:
		user = domain.RawUser{ID: "1", Username: "root", IsStaff: boolPtr(true)}
	case f.devTok, f.freshTok:
		user = domain.RawUser{ID: "5", Username: "dev", Email: "dev@example.com"}
	default:
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid"})
		return
	}

	switch route {
	case "GET /api/auth/me/":
		user.Email = "updated@example.com"
		writeJSON(w, http.StatusOK, user)
	case "GET /api/tests/":
		score := 80.0
		writeJSON(w, http.StatusOK, []domain.Record{
			{ID: "t1", Name: "Payments API", CreatedBy: &domain.Owner{ID: "9", Username: "other"}, Severity: domain.SeverityCounts{Critical: 2}},
			{ID: "t2", Name: "Shared scan", Score: &score, Severity: domain.SeverityCounts{High: 1}, Vulnerabilities: []domain.Vulnerability{{ID: "v1"}}},
			{ID: "t3", Name: "My scan", CreatedBy: &domain.Owner{ID: "5", Username: "dev"}, Vulnerabilities: []domain.Vulnerability{{ID: "v3"}}},
		})
	case "GET /api/reports/":
		writeJSON(w, http.StatusOK, []domain.Record{
			{ID: "r1", CreatedBy: &domain.Owner{ID: "9"}},
			{ID: "r3", CreatedBy: &domain.Owner{ID: "5"}},
		})
	case "GET /api/admin/developers/":
		writeJSON(w, http.StatusOK, []domain.RawUser{
			{ID: "5", Username: "dev"},
			{ID: "6", Username: "idle", IsActive: boolPtr(false)},
		})
	case "GET /api/admin/admins/":
		writeJSON(w, http.StatusOK, []domain.RawUser{{ID: "1", Username: "root", IsStaff: boolPtr(true)}})
	case "PATCH /api/admin/users/6/":
		f.record("patch 6")
		writeJSON(w, http.StatusOK, domain.RawUser{ID: "6", Username: "idle", IsActive: boolPtr(true)})
	case "POST /api/tests/t3/vulnerabilities/v3/address/":
		f.record("address t3 v3")
		w.WriteHeader(http.StatusOK)
	case "POST /api/reports/r3/read/":
		f.record("read r3")
		w.WriteHeader(http.StatusOK)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
}

// setupCLI points HOME at a temp dir and returns the fake backend and the
// --host argument for it.
func setupCLI(t *testing.T) (*fakeBackend, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CYBERXPERT_HOST", "")
	t.Setenv("CYBERXPERT_OUTPUT", "")
	t.Setenv("CYBERXPERT_SESSION", "")
	t.Setenv("CYBERXPERT_SESSION_PATH", "")
	t.Setenv("CYBERXPERT_SESSION_KEY", "")

	exp := time.Now().Add(time.Hour).Unix()
	f := &fakeBackend{
		adminTok:   makeToken(t, jwt.MapClaims{"user_id": 1, "username": "root", "is_staff": true, "exp": exp}),
		devTok:     makeToken(t, jwt.MapClaims{"user_id": 5, "username": "dev", "exp": exp}),
		expiredTok: makeToken(t, jwt.MapClaims{"user_id": 5, "username": "dev", "exp": time.Now().Add(-time.Minute).Unix()}),
		freshTok:   makeToken(t, jwt.MapClaims{"user_id": 5, "username": "dev", "exp": exp, "jti": "fresh"}),
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func login(t *testing.T, host, email string) {
	t.Helper()
	_, err := runCLI(t, "secret123\n", "--host", host, "login", "--email", email, "--password-stdin")
	require.NoError(t, err)
}

func TestLoginWhoamiLogout(t *testing.T) {
	f, host := setupCLI(t)

	out, err := runCLI(t, "secret123\n", "--host", host, "login", "--email", "dev@example.com", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Role:")
	assert.Contains(t, out, "developer")

	sessionFile := filepath.Join(os.Getenv("HOME"), ".cyberxpert", "session.json")
	info, err := os.Stat(sessionFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err = runCLI(t, "", "--host", host, "whoami", "-o", "json")
	require.NoError(t, err)
	var p domain.Principal
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, domain.ID("5"), p.ID)
	assert.Equal(t, domain.RoleDeveloper, p.Role)
	assert.Equal(t, "dev@example.com", p.Email)

	out, err = runCLI(t, "", "--host", host, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.Equal(t, []string{"logout refresh-dev"}, f.recorded())

	_, err = runCLI(t, "", "--host", host, "whoami")
	require.ErrorIs(t, err, domain.ErrNoSession)

	out, err = runCLI(t, "", "--host", host, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestWhoami_Refresh(t *testing.T) {
	_, host := setupCLI(t)
	login(t, host, "dev@example.com")

	_, err := runCLI(t, "", "--host", host, "whoami", "--refresh")
	require.NoError(t, err)

	out, err := runCLI(t, "", "--host", host, "whoami", "-o", "json")
	require.NoError(t, err)
	var p domain.Principal
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "updated@example.com", p.Email)
	assert.Equal(t, domain.RoleDeveloper, p.Role)
}

func TestLogin_Errors(t *testing.T) {
	_, host := setupCLI(t)

	_, err := runCLI(t, "wrong\n", "--host", host, "login", "--email", "dev@example.com", "--password-stdin")
	require.Error(t, err)
	var unauthenticated *domain.UnauthenticatedError
	assert.ErrorAs(t, err, &unauthenticated)

	_, err = runCLI(t, "", "--host", host, "login", "--email", "dev@example.com", "--password-stdin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty password")

	_, err = runCLI(t, "", "--host", host, "whoami")
	require.ErrorIs(t, err, domain.ErrNoSession)
}

func TestTestsAndReports_Developer(t *testing.T) {
	f, host := setupCLI(t)
	login(t, host, "dev@example.com")

	out, err := runCLI(t, "", "--host", host, "tests", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Shared scan")
	assert.Contains(t, out, "My scan")
	assert.NotContains(t, out, "Payments API")
	assert.Contains(t, out, "80.0")

	out, err = runCLI(t, "", "--host", host, "reports", "list", "-o", "json")
	require.NoError(t, err)
	var reports []domain.Record
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, domain.ID("r3"), reports[0].ID)

	_, err = runCLI(t, "", "--host", host, "reports", "read", "r3")
	require.NoError(t, err)
	out, err = runCLI(t, "", "--host", host, "vulns", "address", "t3", "v3")
	require.NoError(t, err)
	assert.Contains(t, out, "marked as addressed")

	_, err = runCLI(t, "", "--host", host, "vulns", "address", "t2", "v1")
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	assert.Equal(t, []string{"read r3", "address t3 v3"}, f.recorded())
}

func TestMenuAndSummary(t *testing.T) {
	_, host := setupCLI(t)
	login(t, host, "dev@example.com")

	out, err := runCLI(t, "", "--host", host, "menu")
	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "/reports")
	assert.NotContains(t, out, "/admin/users")

	out, err = runCLI(t, "", "--host", host, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Tests:")
	assert.Contains(t, out, "Average score: 80.0")
}

func TestAccounts(t *testing.T) {
	f, host := setupCLI(t)
	login(t, host, "admin@example.com")

	out, err := runCLI(t, "", "--host", host, "accounts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "idle")
	assert.Contains(t, out, "suspended")
	assert.Contains(t, out, "toggle,delete")

	out, err = runCLI(t, "", "--host", host, "accounts", "activate", "6")
	require.NoError(t, err)
	assert.Contains(t, out, "active")

	_, err = runCLI(t, "", "--host", host, "accounts", "delete", "1")
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	_, err = runCLI(t, "", "--host", host, "accounts", "create", "--username", "x", "--email", "x@example.com", "--role", "auditor", "--password-stdin")
	var invalid *domain.ValidationError
	require.ErrorAs(t, err, &invalid)

	assert.Equal(t, []string{"patch 6"}, f.recorded())
}

func TestAccounts_DeveloperDenied(t *testing.T) {
	_, host := setupCLI(t)
	login(t, host, "dev@example.com")

	_, err := runCLI(t, "longpassword\n", "--host", host, "accounts", "create", "--username", "x", "--email", "x@example.com", "--password-stdin")
	var denied *domain.AccessDeniedError
	require.ErrorAs(t, err, &denied)

	out, err := runCLI(t, "", "--host", host, "accounts", "list")
	require.NoError(t, err)
	assert.Equal(t, "ID  USERNAME  EMAIL  ROLE  STATUS  ACTIONS\n", out)
}

func TestExpiredAccessTokenIsRefreshed(t *testing.T) {
	f, host := setupCLI(t)
	login(t, host, "expired@example.com")

	out, err := runCLI(t, "", "--host", host, "tests", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "My scan")
	assert.Equal(t, []string{"refresh refresh-expired"}, f.recorded())

	data, err := os.ReadFile(filepath.Join(os.Getenv("HOME"), ".cyberxpert", "session.json"))
	require.NoError(t, err)
	var entries map[string]string
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Equal(t, f.freshTok, entries[domain.SessionKeyAccessToken])
	assert.Equal(t, "refresh-expired", entries[domain.SessionKeyRefreshToken], "refresh token kept when not rotated")
}

func TestRejectedRefreshEndsSession(t *testing.T) {
	_, host := setupCLI(t)
	login(t, host, "expired@example.com")

	// Make the stored refresh token one the backend rejects.
	path := filepath.Join(os.Getenv("HOME"), ".cyberxpert", "session.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries map[string]string
	require.NoError(t, json.Unmarshal(data, &entries))
	entries[domain.SessionKeyRefreshToken] = "revoked"
	data, err = json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = runCLI(t, "", "--host", host, "tests", "list")
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = runCLI(t, "", "--host", host, "whoami")
	require.ErrorIs(t, err, domain.ErrNoSession)
}

func TestSQLiteSession(t *testing.T) {
	_, host := setupCLI(t)
	t.Setenv("CYBERXPERT_SESSION", "sqlite")
	t.Setenv("CYBERXPERT_SESSION_KEY", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	login(t, host, "dev@example.com")

	_, err := os.Stat(filepath.Join(os.Getenv("HOME"), ".cyberxpert", "session.db"))
	require.NoError(t, err)

	out, err := runCLI(t, "", "--host", host, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "developer")
}

func TestRootFlagPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {Host: "http://profile:8000", Output: "json"},
			"other":   {Host: "http://other:8000"},
		},
	}))

	tests := []struct {
		name       string
		env        string
		args       []string
		wantHost   string
		wantOutput string
	}{
		{"profile", "", []string{"version"}, "http://profile:8000", "json"},
		{"env over profile", "http://env:8000", []string{"version"}, "http://env:8000", "json"},
		{"flag over env", "http://env:8000", []string{"--host", "http://flag:8000", "-o", "table", "version"}, "http://flag:8000", "table"},
		{"named profile", "", []string{"--profile", "other", "version"}, "http://other:8000", "table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CYBERXPERT_HOST", tt.env)
			t.Setenv("CYBERXPERT_OUTPUT", "")
			rootCmd := newRootCmd()
			rootCmd.SetOut(&strings.Builder{})
			rootCmd.SetArgs(tt.args)
			require.NoError(t, rootCmd.Execute())

			host, _ := rootCmd.PersistentFlags().GetString("host")
			output, _ := rootCmd.PersistentFlags().GetString("output")
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantOutput, output)
		})
	}
}

func TestRoot_InvalidSettings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CYBERXPERT_HOST", "")
	t.Setenv("CYBERXPERT_OUTPUT", "")
	t.Setenv("CYBERXPERT_SESSION", "")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad output", []string{"-o", "yaml", "version"}, "unsupported output format"},
		{"bad host", []string{"--host", "ftp://x", "version"}, "scheme must be http or https"},
		{"bad session", []string{"--session", "redis", "version"}, "unsupported session store"},
		{"missing profile", []string{"--profile", "nope", "version"}, `profile "nope" not found`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestVersion(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "cyberxpert version dev (commit: none)\n", out)
}
