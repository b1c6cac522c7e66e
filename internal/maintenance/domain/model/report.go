package model

import "time"

// CounterResetResult summarises one pass of the counter reset.
type CounterResetResult struct {
	Counters      int      `json:"counters"`
	DetailsReset  int      `json:"detailsReset"`
	DetailsFailed int      `json:"detailsFailed"`
	Skipped       []string `json:"skipped,omitempty"` // counter IDs whose email could not be used
}

// RunReport describes a full reset run.
type RunReport struct {
	RunID      string              `json:"runId"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
	Cleared    map[string]int      `json:"cleared"`
	Counters   *CounterResetResult `json:"counters,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether every step completed without a run-level error.
func (r *RunReport) Succeeded() bool {
	return r.Error == ""
}
