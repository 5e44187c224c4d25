// Package client holds the error types shared by the external system
// gateways. Each gateway reports failures as either a TransportError (the
// remote system could not be reached) or a StatusError (the remote system
// answered with a non-2xx status).
package client

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError indicates a connection or timeout failure against a gateway
type TransportError struct {
	System string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.System, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError carries a non-2xx response from a gateway
type StatusError struct {
	System     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.System, e.StatusCode, e.Body)
}

// IsConflict reports whether err is a gateway conflict response. Conflicts
// are the single benign failure: the two idempotent pipeline steps treat
// them as "already exists" and continue.
func IsConflict(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict
}
