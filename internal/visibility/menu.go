package visibility

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"cyberxpert/internal/domain"
)

//go:embed menu.yaml
var defaultMenuYAML []byte

// Badge sources by menu key.
const (
	reportsKey = "reports"
	usersKey   = "users"
)

// Menu is an ordered navigation definition.
type Menu struct {
	Entries []domain.MenuEntry `yaml:"entries"`
}

// DefaultMenu returns the built-in navigation definition.
func DefaultMenu() *Menu {
	m, err := LoadMenu(bytes.NewReader(defaultMenuYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded menu is invalid: %v", err))
	}
	return m
}

// LoadMenu parses and validates a YAML navigation definition.
func LoadMenu(r io.Reader) (*Menu, error) {
	var m Menu
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every entry has a unique key, a label and a path.
func (m *Menu) Validate() error {
	seen := make(map[string]bool, len(m.Entries))
	for i, e := range m.Entries {
		if e.Key == "" {
			return domain.ErrValidation("menu entry %d: key is required", i)
		}
		if seen[e.Key] {
			return domain.ErrValidation("menu entry %q: duplicate key", e.Key)
		}
		seen[e.Key] = true
		if e.Label == "" {
			return domain.ErrValidation("menu entry %q: label is required", e.Key)
		}
		if e.Path == "" {
			return domain.ErrValidation("menu entry %q: path is required", e.Key)
		}
	}
	return nil
}

// Build returns the entries visible to p, in definition order. Admin-only
// entries are kept for admins only. The reports entry carries the unread
// count and the users entry the pending count; a zero count carries no badge.
// A nil principal gets no menu.
func (m *Menu) Build(p *domain.Principal, badges domain.Badges) []domain.MenuEntry {
	if p == nil {
		return []domain.MenuEntry{}
	}
	out := make([]domain.MenuEntry, 0, len(m.Entries))
	for _, e := range m.Entries {
		if e.AdminOnly && !p.IsAdmin() {
			continue
		}
		e.Badge = nil
		switch e.Key {
		case reportsKey:
			e.Badge = badge(badges.UnreadReports)
		case usersKey:
			e.Badge = badge(badges.PendingAccounts)
		}
		out = append(out, e)
	}
	return out
}

// BuildMenu builds the default menu for p.
func BuildMenu(p *domain.Principal, badges domain.Badges) []domain.MenuEntry {
	return DefaultMenu().Build(p, badges)
}

func badge(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}
