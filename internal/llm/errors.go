package llm

import "fmt"

// TimeoutError reports an oracle call that ran out of time, either through
// the request deadline or the run's context.
type TimeoutError struct {
	Model string
	Cause error
}

func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("oracle timeout for model %s: %v", e.Model, e.Cause)
	}
	return fmt.Sprintf("oracle timeout for model %s", e.Model)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// RequestError reports a failed oracle exchange: transport failure, a
// non-success status, or a response with no usable content.
type RequestError struct {
	Model   string
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("oracle error for model %s: %s: %v", e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("oracle error for model %s: %s", e.Model, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}
