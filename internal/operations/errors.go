package operations

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse is returned when a page body cannot be decoded
	// or lacks a required field.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrInvalidRequest is returned when a RetrievalRequest breaks one of its invariants.
	ErrInvalidRequest = errors.New("invalid retrieval request")
)

// RemoteError is returned when the bank answers with a non-success status.
// It is never retried.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	const maxLen = 500
	body := e.Body
	if len(body) > maxLen {
		body = body[:maxLen] + "..."
	}
	return fmt.Sprintf("remote error: status %d: %s", e.StatusCode, body)
}
