package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned for 401/403 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrServer is returned for any other non-2xx response.
	ErrServer = errors.New("unexpected status")
)

// NetworkError is a failed exchange with the backend: either the transport
// failed (Status 0) or the backend answered with a non-2xx status.
type NetworkError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("client: %s: %v", e.Op, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("client: %s: http %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("client: %s: http %d", e.Op, e.Status)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func statusErr(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrServer
	}
}
