package visibility

import "cyberxpert/internal/domain"

// Summary aggregates dashboard counters over a set of records.
type Summary struct {
	Total        int      `json:"total"`
	Critical     int      `json:"critical"`
	High         int      `json:"high"`
	Medium       int      `json:"medium"`
	Low          int      `json:"low"`
	Open         int      `json:"open_vulnerabilities"`
	AverageScore *float64 `json:"average_score,omitempty"`
}

// Summarize counts severities and open findings and averages the scores of
// records that have one.
func Summarize(records []domain.Record) Summary {
	var (
		s      Summary
		sum    float64
		scored int
	)
	s.Total = len(records)
	for _, r := range records {
		s.Critical += r.Severity.Critical
		s.High += r.Severity.High
		s.Medium += r.Severity.Medium
		s.Low += r.Severity.Low
		for _, v := range r.Vulnerabilities {
			if !v.Addressed {
				s.Open++
			}
		}
		if r.Score != nil {
			sum += *r.Score
			scored++
		}
	}
	if scored > 0 {
		avg := sum / float64(scored)
		s.AverageScore = &avg
	}
	return s
}
