package analysis

import "fmt"

// UnavailableError reports that every candidate in a batch failed analysis,
// which the pipeline treats as an oracle outage rather than an empty day.
type UnavailableError struct {
	Attempted int
	Cause     error
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("analysis unavailable: all %d candidates failed: %v", e.Attempted, e.Cause)
	}
	return fmt.Sprintf("analysis unavailable: all %d candidates failed", e.Attempted)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// SchemaError reports an oracle response that could not be validated against
// the analysis schema or decoded.
type SchemaError struct {
	ID    string
	Cause error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid analysis for %s: %v", e.ID, e.Cause)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}
