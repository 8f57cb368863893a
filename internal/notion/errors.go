package notion

import "fmt"

// WriteError represents a failed workspace operation. Status is the HTTP
// status when the API answered, zero when the exchange itself failed.
type WriteError struct {
	Op      string
	Status  int
	Message string
	Cause   error
}

func (e *WriteError) Error() string {
	msg := fmt.Sprintf("notion %s failed", e.Op)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}
