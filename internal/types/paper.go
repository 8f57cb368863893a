// Package types provides type definitions for structured data used throughout the arxiv-digest system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// PaperCandidate represents a raw paper fetched from the feed, not yet analyzed.
// Candidates are immutable once fetched; duplicates across categories are
// collapsed by the deduplicator before analysis.
type PaperCandidate struct {
	// ID is the stable arXiv identifier with the version suffix stripped
	// (e.g. "2401.00001", never "2401.00001v2")
	ID      string   `json:"arxiv_id"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	// Category is the primary category code (e.g. "cs.AI")
	Category string `json:"category"`
	// Categories lists every category the paper was observed under,
	// in first-seen order
	Categories    []string  `json:"categories"`
	SubmittedDate time.Time `json:"submitted_date"`
	UpdatedDate   time.Time `json:"updated_date,omitempty"`
	AbstractURL   string    `json:"abstract_url"`
	PDFURL        string    `json:"pdf_url"`
	AbstractText  string    `json:"abstract"`
}

// DefaultCategories are the arXiv categories monitored when none are configured.
var DefaultCategories = []string{"cs.AI", "cs.LG", "cs.CL", "cs.CV", "cs.RO"}

// categoryNames maps category codes to human-readable names for digest output.
var categoryNames = map[string]string{
	"cs.AI": "Artificial Intelligence",
	"cs.LG": "Machine Learning",
	"cs.CL": "Computation and Language",
	"cs.CV": "Computer Vision",
	"cs.RO": "Robotics",
}

// categorySelectValues maps category codes to workspace select options.
var categorySelectValues = map[string]string{
	"cs.AI": "Artificial Intelligence",
	"cs.LG": "Machine Learning",
	"cs.CL": "NLP",
	"cs.CV": "Computer Vision",
	"cs.RO": "Robotics",
}

// CategoryDisplayName returns the human-readable name for a category code.
// Unknown codes are returned unchanged.
func CategoryDisplayName(code string) string {
	if name, ok := categoryNames[code]; ok {
		return name
	}
	return code
}

// CategorySelectValue returns the workspace select option for a category code.
// Unknown codes fall back to "Machine Learning".
func CategorySelectValue(code string) string {
	if value, ok := categorySelectValues[code]; ok {
		return value
	}
	return "Machine Learning"
}
