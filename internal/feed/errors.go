package feed

import "fmt"

// UnavailableError reports a total feed failure: the HTTP exchange or the
// feed decode failed for a requested category. Per-entry problems never
// surface as this error.
type UnavailableError struct {
	Source  string
	Message string
	Cause   error
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("feed %s unavailable: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("feed %s unavailable: %s", e.Source, e.Message)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}
