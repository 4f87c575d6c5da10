package ingest

import "time"

// Outcome is how the creation of one entity ended.
type Outcome string

const (
	OutcomeCreated          Outcome = "created"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeParentNotFound   Outcome = "parent_not_found"
	OutcomeValidationFailed Outcome = "validation_failed"
	OutcomeFailed           Outcome = "failed"
)

// Tier names, in creation order.
const (
	TierStates    = "states"
	TierDistricts = "districts"
	TierTowns     = "towns"
)

// ItemResult is the outcome for one entity; Line is its first row.
type ItemResult struct {
	Name    string  `json:"name"`
	Line    int     `json:"line"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message,omitempty"`
}

// TierReport summarizes one tier of an import.
type TierReport struct {
	Tier       string          `json:"tier"`
	Attempted  int             `json:"attempted"`
	Counts     map[Outcome]int `json:"counts"`
	DurationMs int64           `json:"durationMs"`
	Items      []ItemResult    `json:"items"`
}

// Manifest reports what one import did to every entity it touched.
type Manifest struct {
	ImportID    string       `json:"importId"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  time.Time    `json:"finishedAt"`
	Rows        int          `json:"rows"`
	Tiers       []TierReport `json:"tiers"`
	Warnings    []Warning    `json:"warnings"`
	SkippedRows []RowError   `json:"skippedRows"`
}

// Tier returns the report for the named tier, or nil.
func (m *Manifest) Tier(name string) *TierReport {
	for i := range m.Tiers {
		if m.Tiers[i].Tier == name {
			return &m.Tiers[i]
		}
	}
	return nil
}
