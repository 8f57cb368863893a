package types

import "time"

// RunSummary collects the structured counts surfaced at the end of every
// pipeline run. Per-candidate and per-record failures are tallied here
// instead of aborting the run.
type RunSummary struct {
	RunID string `json:"run_id"`
	Date  string `json:"date"`
	State string `json:"state"`

	Fetched        int `json:"fetched"`
	Malformed      int `json:"malformed"`
	Deduplicated   int `json:"deduplicated"`
	Analyzed       int `json:"analyzed"`
	AnalysisFailed int `json:"analysis_failed"`
	Persisted      int `json:"persisted"`
	PersistFailed  int `json:"persist_failed"`

	DigestPageID string    `json:"digest_page_id,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
	// Failures holds one message per dropped candidate or failed upsert
	Failures []string `json:"failures,omitempty"`
}
