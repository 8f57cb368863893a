package types

// ScoredPaper represents a paper candidate enriched with analysis output.
// Instances are created by the analysis engine and never mutated afterward.
type ScoredPaper struct {
	Paper PaperCandidate `json:"paper"`

	// InnovationScore is an integer in [1,10]; responses outside that
	// range fail validation and the paper is treated as unscored
	InnovationScore       int    `json:"innovation_score"`
	Summary               string `json:"summary"`
	KeyInnovation         string `json:"key_innovation"`
	ImplementationDetails string `json:"implementation_details"`
	ProblemSolved         string `json:"problem_solved,omitempty"`
	PotentialImpact       string `json:"potential_impact,omitempty"`
}

// ScoredPapers is an ordered collection of scored papers, sorted descending
// by innovation score with ties keeping original fetch order.
type ScoredPapers struct {
	Papers []ScoredPaper `json:"papers"`
}
