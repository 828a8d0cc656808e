package transport

import (
	"errors"
	"fmt"
)

// ErrInvalidCall marks failures to build a request from a Call
// (malformed URL, unencodable JSON body). Retrying cannot fix them.
var ErrInvalidCall = errors.New("invalid call")

// ErrBodyTooLarge marks a response body, raw or decoded, above the
// client's limit. The same URL will not shrink on retry.
var ErrBodyTooLarge = errors.New("response body too large")

// StatusError is returned by Response.RaiseForStatus for 4xx and 5xx responses.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}
