package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"cyberxpert/internal/domain"
)

// ListDevelopers returns the accounts the backend lists as developers. Each
// is stamped with a developer role override, since membership in this list
// is the strongest role signal available.
func (c *Client) ListDevelopers(ctx context.Context) ([]domain.RawUser, error) {
	return c.listAccounts(ctx, "/api/admin/developers/", domain.RoleDeveloper)
}

// ListAdmins returns the accounts the backend lists as admins, stamped with
// an admin role override.
func (c *Client) ListAdmins(ctx context.Context) ([]domain.RawUser, error) {
	return c.listAccounts(ctx, "/api/admin/admins/", domain.RoleAdmin)
}

func (c *Client) listAccounts(ctx context.Context, path string, role domain.Role) ([]domain.RawUser, error) {
	out, err := listAll[domain.RawUser](ctx, c, path)
	if err != nil {
		return nil, err
	}
	users := make([]domain.RawUser, 0, len(out))
	for _, u := range out {
		users = append(users, u.WithOverride(role))
	}
	return users, nil
}

// CreateAccount creates an account on behalf of an admin.
func (c *Client) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.RawUser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body := map[string]interface{}{
		"username": req.Username,
		"email":    req.Email,
		"password": req.Password,
		"role":     req.Role,
		"is_staff": req.Role == domain.RoleAdmin,
	}
	var u domain.RawUser
	if err := c.call(ctx, http.MethodPost, "/api/admin/users/", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetAccountStatus activates or suspends an account.
func (c *Client) SetAccountStatus(ctx context.Context, id domain.ID, status domain.Status) (*domain.RawUser, error) {
	if !status.Valid() {
		return nil, domain.ErrValidation("invalid status %q", status)
	}
	body := map[string]bool{"is_active": status == domain.StatusActive}
	var u domain.RawUser
	if err := c.call(ctx, http.MethodPatch, accountPath(id), body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteAccount removes an account.
func (c *Client) DeleteAccount(ctx context.Context, id domain.ID) error {
	return c.call(ctx, http.MethodDelete, accountPath(id), nil, nil)
}

func accountPath(id domain.ID) string {
	return fmt.Sprintf("/api/admin/users/%s/", url.PathEscape(id.String()))
}
