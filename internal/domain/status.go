package domain

import "time"

// Run outcomes recorded in RunStatus.
const (
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
)

// RunStatus summarizes the last pipeline run. It is persisted as JSON.
type RunStatus struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	Pages      int       `json:"pages"`
	Candidates int       `json:"candidates"`
	Extracted  int       `json:"extracted"`
	Skipped    int       `json:"skipped"`
	NewRecords int       `json:"new_records"`
	MasterSize int       `json:"master_size"`
	Snapshot   string    `json:"snapshot,omitempty"`
	Error      string    `json:"error,omitempty"`
}
