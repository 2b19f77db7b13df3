package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError is a failed call: the request did not complete or the
// backend answered with an HTTP error and no envelope.
type TransportError struct {
	Method string
	Path   string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: http status %d", e.Method, e.Path, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Unauthorized reports whether the backend rejected the session token.
func (e *TransportError) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

// LogicalError is an envelope with succeeded=false.
type LogicalError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *LogicalError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: request was not successful", e.Method, e.Path)
	}
	return e.Message
}

// Unauthorized reports whether the envelope came back with HTTP 401.
func (e *LogicalError) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsLogical(err error) bool {
	var le *LogicalError
	return errors.As(err, &le)
}

// IsUnauthorized reports a 401 from the backend, with or without an envelope.
func IsUnauthorized(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Unauthorized()
	}
	var le *LogicalError
	return errors.As(err, &le) && le.Unauthorized()
}
