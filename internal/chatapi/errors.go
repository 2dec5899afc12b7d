package chatapi

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBaseURL = errors.New("chatapi: base url must be an absolute http(s) url")
	ErrDecode         = errors.New("chatapi: unexpected response body")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}
