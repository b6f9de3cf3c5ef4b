package identity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberxpert/internal/domain"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestResolveRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  domain.RawUser
		want domain.Role
	}{
		{
			name: "override admin beats developer role string",
			raw:  domain.RawUser{ID: "1", Role: strPtr("developer"), SourceRoleOverride: strPtr("admin")},
			want: domain.RoleAdmin,
		},
		{
			name: "override developer beats admin role and staff flag",
			raw:  domain.RawUser{ID: "1", Role: strPtr("Admin"), IsStaff: boolPtr(true), SourceRoleOverride: strPtr("developer")},
			want: domain.RoleDeveloper,
		},
		{
			name: "invalid override falls through to role string",
			raw:  domain.RawUser{ID: "1", Role: strPtr("ADMIN"), SourceRoleOverride: strPtr("owner")},
			want: domain.RoleAdmin,
		},
		{
			name: "role string mixed case",
			raw:  domain.RawUser{ID: "1", Role: strPtr("Admin")},
			want: domain.RoleAdmin,
		},
		{
			name: "role string upper case",
			raw:  domain.RawUser{ID: "1", Role: strPtr("ADMIN")},
			want: domain.RoleAdmin,
		},
		{
			name: "legacy Dev role falls through to default",
			raw:  domain.RawUser{ID: "1", Role: strPtr("Dev")},
			want: domain.RoleDeveloper,
		},
		{
			name: "non admin role string with staff flag",
			raw:  domain.RawUser{ID: "1", Role: strPtr("developer"), IsStaff: boolPtr(true)},
			want: domain.RoleAdmin,
		},
		{
			name: "staff flag only",
			raw:  domain.RawUser{ID: "9", IsStaff: boolPtr(true)},
			want: domain.RoleAdmin,
		},
		{
			name: "superuser flag only",
			raw:  domain.RawUser{ID: "9", IsSuperuser: boolPtr(true)},
			want: domain.RoleAdmin,
		},
		{
			name: "flags present but false",
			raw:  domain.RawUser{ID: "9", IsStaff: boolPtr(false), IsSuperuser: boolPtr(false)},
			want: domain.RoleDeveloper,
		},
		{
			name: "no signals at all",
			raw:  domain.RawUser{ID: "3"},
			want: domain.RoleDeveloper,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ResolveRole(tt.raw))
		})
	}
}

func TestResolveStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.StatusActive, ResolveStatus(domain.RawUser{}))
	assert.Equal(t, domain.StatusActive, ResolveStatus(domain.RawUser{IsActive: boolPtr(true)}))
	assert.Equal(t, domain.StatusSuspended, ResolveStatus(domain.RawUser{IsActive: boolPtr(false)}))
}

func TestResolvePrincipal_Scenarios(t *testing.T) {
	t.Parallel()

	t.Run("alice with Admin role string", func(t *testing.T) {
		p := ResolvePrincipal(&domain.RawUser{ID: "7", Username: "alice", Role: strPtr("Admin"), IsStaff: boolPtr(false)})
		require.NotNil(t, p)
		assert.Equal(t, domain.ID("7"), p.ID)
		assert.Equal(t, domain.RoleAdmin, p.Role)
		assert.Equal(t, "alice", p.Username)
	})

	t.Run("staff without role", func(t *testing.T) {
		p := ResolvePrincipal(&domain.RawUser{ID: "9", IsStaff: boolPtr(true)})
		require.NotNil(t, p)
		assert.Equal(t, domain.ID("9"), p.ID)
		assert.Equal(t, domain.RoleAdmin, p.Role)
	})

	t.Run("no signals", func(t *testing.T) {
		p := ResolvePrincipal(&domain.RawUser{ID: "3"})
		require.NotNil(t, p)
		assert.Equal(t, domain.ID("3"), p.ID)
		assert.Equal(t, domain.RoleDeveloper, p.Role)
		assert.Equal(t, domain.StatusActive, p.Status)
	})

	t.Run("nil input", func(t *testing.T) {
		assert.Nil(t, ResolvePrincipal(nil))
	})
}

func TestResolvePrincipal_FromBackendJSON(t *testing.T) {
	t.Parallel()

	payload := `{
		"id": 42,
		"username": "bob",
		"email": "bob@example.com",
		"is_staff": false,
		"is_superuser": true,
		"is_active": false,
		"avatar_url": "https://cdn.example.com/bob.png",
		"date_joined": "2024-03-01T10:00:00Z"
	}`
	var raw domain.RawUser
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	p := ResolvePrincipal(&raw)
	require.NotNil(t, p)
	assert.Equal(t, domain.ID("42"), p.ID)
	assert.Equal(t, domain.RoleAdmin, p.Role)
	assert.Equal(t, domain.StatusSuspended, p.Status)
	assert.Equal(t, "https://cdn.example.com/bob.png", p.AvatarURL)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), p.CreatedAt)
	require.NotNil(t, p.IsSuperuser)
	assert.True(t, *p.IsSuperuser)
}

func TestResolvePrincipal_DoesNotAliasFlags(t *testing.T) {
	t.Parallel()

	raw := domain.RawUser{ID: "1", IsStaff: boolPtr(true)}
	p := ResolvePrincipal(&raw)
	*raw.IsStaff = false
	require.NotNil(t, p.IsStaff)
	assert.True(t, *p.IsStaff)
}

func TestResolveAccount(t *testing.T) {
	t.Parallel()

	a := ResolveAccount(domain.RawUser{ID: "5", Username: "dev", IsActive: boolPtr(false)})
	assert.Equal(t, domain.ID("5"), a.ID)
	assert.Equal(t, domain.RoleDeveloper, a.Role)
	assert.Equal(t, domain.StatusSuspended, a.Status)

	a = ResolveAccount(domain.RawUser{ID: "6"}.WithOverride(domain.RoleAdmin))
	assert.Equal(t, domain.RoleAdmin, a.Role)
}
