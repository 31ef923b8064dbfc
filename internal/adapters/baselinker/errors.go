package baselinker

import "fmt"

// APIError is an application-level failure: the API answered with a
// well-formed response whose status is not SUCCESS. These are never
// retried automatically.
type APIError struct {
	Method  string
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("baselinker %s: %s (%s)", e.Method, e.Message, e.Code)
	}
	return fmt.Sprintf("baselinker %s: %s", e.Method, e.Message)
}

// TransportError is a network-level failure that survived the bounded
// retry schedule (timeouts, connection errors, 5xx responses).
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("baselinker %s: request failed after retries: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
