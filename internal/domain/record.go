package domain

import "time"

// RecordKind distinguishes the two record collections.
type RecordKind string

// Record kinds.
const (
	KindTest   RecordKind = "test"
	KindReport RecordKind = "report"
)

// Owner is a weak reference to the principal that generated a record.
type Owner struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
}

// SeverityCounts tallies vulnerabilities by severity.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Total returns the sum of all severities.
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low
}

// Vulnerability is a single finding inside a test.
type Vulnerability struct {
	ID        ID     `json:"id"`
	Title     string `json:"title"`
	Severity  string `json:"severity"`
	Addressed bool   `json:"addressed"`
}

// Record is a test or report produced by a backend analysis run.
// A record with no CreatedBy is shared and visible to everyone.
type Record struct {
	ID              ID              `json:"id"`
	Kind            RecordKind      `json:"kind,omitempty"`
	Name            string          `json:"name,omitempty"`
	Target          string          `json:"target,omitempty"`
	CreatedBy       *Owner          `json:"created_by,omitempty"`
	Score           *float64        `json:"score,omitempty"`
	Severity        SeverityCounts  `json:"severity_counts"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities,omitempty"`
	Read            bool            `json:"is_read"`
	CreatedAt       time.Time       `json:"created_at"`
}

// OwnedBy reports whether the record was created by the principal with id.
func (r Record) OwnedBy(id ID) bool {
	return r.CreatedBy != nil && r.CreatedBy.ID == id
}

// Shared reports whether the record has no owner.
func (r Record) Shared() bool {
	return r.CreatedBy == nil
}
