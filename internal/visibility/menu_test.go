package visibility

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberxpert/internal/domain"
)

func entryKeys(entries []domain.MenuEntry) []string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys
}

func findEntry(t *testing.T, entries []domain.MenuEntry, key string) domain.MenuEntry {
	t.Helper()
	for _, e := range entries {
		if e.Key == key {
			return e
		}
	}
	t.Fatalf("menu entry %q not found", key)
	return domain.MenuEntry{}
}

func TestBuildMenu_AdminOnlyEntries(t *testing.T) {
	t.Parallel()

	admin := &domain.Principal{ID: "1", Role: domain.RoleAdmin}
	dev := &domain.Principal{ID: "2", Role: domain.RoleDeveloper}

	assert.Equal(t,
		[]string{"dashboard", "tests", "reports", "analysis", "users", "profile"},
		entryKeys(BuildMenu(admin, domain.Badges{})))
	assert.Equal(t,
		[]string{"dashboard", "tests", "reports", "analysis", "profile"},
		entryKeys(BuildMenu(dev, domain.Badges{})))

	for _, e := range BuildMenu(dev, domain.Badges{PendingAccounts: 4}) {
		assert.False(t, e.AdminOnly, "developer got admin-only entry %q", e.Key)
	}
}

func TestBuildMenu_NilPrincipal(t *testing.T) {
	t.Parallel()

	got := BuildMenu(nil, domain.Badges{UnreadReports: 3})
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBuildMenu_Badges(t *testing.T) {
	t.Parallel()

	admin := &domain.Principal{ID: "1", Role: domain.RoleAdmin}

	tests := []struct {
		name        string
		badges      domain.Badges
		wantReports *int
		wantUsers   *int
	}{
		{"zero counts carry no badge", domain.Badges{}, nil, nil},
		{"unread reports only", domain.Badges{UnreadReports: 3}, intPtr(3), nil},
		{"pending accounts only", domain.Badges{PendingAccounts: 2}, nil, intPtr(2)},
		{"both", domain.Badges{UnreadReports: 1, PendingAccounts: 5}, intPtr(1), intPtr(5)},
		{"negative treated as none", domain.Badges{UnreadReports: -1}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			entries := BuildMenu(admin, tt.badges)
			assert.Equal(t, tt.wantReports, findEntry(t, entries, "reports").Badge)
			assert.Equal(t, tt.wantUsers, findEntry(t, entries, "users").Badge)
			assert.Nil(t, findEntry(t, entries, "dashboard").Badge)
		})
	}
}

func TestLoadMenu(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "valid",
			yaml: "entries:\n  - key: home\n    label: Home\n    path: /\n",
		},
		{
			name:    "missing key",
			yaml:    "entries:\n  - label: Home\n    path: /\n",
			wantErr: "key is required",
		},
		{
			name:    "duplicate key",
			yaml:    "entries:\n  - key: a\n    label: A\n    path: /a\n  - key: a\n    label: B\n    path: /b\n",
			wantErr: "duplicate key",
		},
		{
			name:    "missing path",
			yaml:    "entries:\n  - key: a\n    label: A\n",
			wantErr: "path is required",
		},
		{
			name:    "unknown field",
			yaml:    "entries:\n  - key: a\n    label: A\n    path: /a\n    colour: red\n",
			wantErr: "parse menu",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := LoadMenu(strings.NewReader(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, m.Entries, 1)
		})
	}
}

func TestMenuBuild_CustomMenu(t *testing.T) {
	t.Parallel()

	m, err := LoadMenu(strings.NewReader(`
entries:
  - key: reports
    label: Reports
    path: /reports
  - key: audit
    label: Audit
    path: /audit
    admin_only: true
`))
	require.NoError(t, err)

	dev := &domain.Principal{ID: "2", Role: domain.RoleDeveloper}
	got := m.Build(dev, domain.Badges{UnreadReports: 7})
	require.Len(t, got, 1)
	assert.Equal(t, "reports", got[0].Key)
	require.NotNil(t, got[0].Badge)
	assert.Equal(t, 7, *got[0].Badge)
	assert.Nil(t, m.Entries[0].Badge, "building does not mutate the definition")
}

func intPtr(n int) *int { return &n }
