package connectors

import "fmt"

// RequestError carries the original status and message from a failed source
// request. The execution engine propagates it to callers without retrying.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("source request failed: %s", e.Message)
}
