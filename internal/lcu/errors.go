package lcu

import (
	"errors"
	"fmt"
)

var (
	// ErrClientNotFound means no running client exposed usable credentials.
	ErrClientNotFound = errors.New("league client not found")
	// ErrAuthInvalid wraps whatever made cached credentials fail validation.
	ErrAuthInvalid = errors.New("client credentials rejected")
)

// TransportError is a connection, TLS or timeout failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx reply.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// DecodeError is a 2xx reply whose body could not be parsed.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s: decoding response: %v", e.Op, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }
