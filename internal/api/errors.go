package api

import "fmt"

// TransportError wraps a network-level failure (DNS, connect, timeout) before
// any HTTP status was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError covers 401/403 responses and the protocol case of a rejected
// credential. Body holds the response text when the server sent one.
type AuthError struct {
	Op     string
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: auth rejected (status %d): %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: auth rejected (status %d)", e.Op, e.Status)
}

// ServerError covers any other non-2xx status, and 2xx responses whose body
// is malformed or missing a required field. The body text is always captured
// before the error is raised.
type ServerError struct {
	Op     string
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: server error (status %d): %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: server error (status %d)", e.Op, e.Status)
}

// ValidationError is raised client-side before any network call when a
// required form field is empty or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
