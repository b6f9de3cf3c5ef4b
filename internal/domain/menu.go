package domain

// MenuEntry is a single navigation item.
type MenuEntry struct {
	Key       string `json:"key" yaml:"key"`
	Label     string `json:"label" yaml:"label"`
	Path      string `json:"path" yaml:"path"`
	Icon      string `json:"icon,omitempty" yaml:"icon,omitempty"`
	AdminOnly bool   `json:"admin_only,omitempty" yaml:"admin_only,omitempty"`
	Badge     *int   `json:"badge,omitempty" yaml:"-"`
}

// Badges carries the counters shown next to menu entries.
type Badges struct {
	UnreadReports   int `json:"unread_reports"`
	PendingAccounts int `json:"pending_accounts"`
}

// AccountPartition splits managed accounts by resolved role.
type AccountPartition struct {
	Developers []UserAccount `json:"developers"`
	Admins     []UserAccount `json:"admins"`
}
