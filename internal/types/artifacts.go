package types

import "time"

// CandidateBatch is the artifact written by the fetch stage: the deduplicated
// candidates for a window plus the counts observed while collecting them.
type CandidateBatch struct {
	GeneratedAt time.Time `json:"generated_at"`
	Since       string    `json:"since,omitempty"`
	Categories  []string  `json:"categories"`

	Fetched    int `json:"fetched"`
	Malformed  int `json:"malformed"`
	Duplicates int `json:"duplicates"`

	Candidates []PaperCandidate `json:"candidates"`
}

// ScoredBatch is the artifact written by the analysis stage: the ranked
// top papers with the oracle bookkeeping for the run.
type ScoredBatch struct {
	GeneratedAt time.Time `json:"generated_at"`
	Model       string    `json:"model,omitempty"`
	TopN        int       `json:"top_n"`

	Analyzed int `json:"analyzed"`
	Failed   int `json:"failed"`

	Papers []ScoredPaper `json:"papers"`
}
