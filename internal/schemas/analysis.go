package schemas

import (
	_ "embed"
)

// The oracle response schema is embedded so response validation never
// depends on the working directory at run time.
//
//go:embed paper_analysis.schema.json
var paperAnalysisSchema string

// PaperAnalysis returns the JSON Schema for oracle analysis responses.
func PaperAnalysis() string {
	return paperAnalysisSchema
}

// ValidatePaperAnalysis checks an oracle response against the paper
// analysis schema. It returns a *ValidationError describing every failing
// field, or nil when the response conforms.
func ValidatePaperAnalysis(jsonContent string) error {
	return ValidateJSONString(paperAnalysisSchema, jsonContent)
}
