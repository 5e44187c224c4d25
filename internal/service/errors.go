package service

import (
	"errors"
	"fmt"

	"github.com/Metaform/redline/internal/client"
)

// NotFoundError indicates a referenced entity is absent from the store
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id %v", e.Entity, e.ID)
}

// ProvisioningError indicates a non-conflict failure response from an
// external gateway during a pipeline step. The step name supports manual
// retry decisions.
type ProvisioningError struct {
	Step   string
	System string
	Err    error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning step %q failed against %s: %v", e.Step, e.System, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// wrapGatewayError converts a gateway failure response into a
// ProvisioningError carrying the pipeline step. Transport and
// authentication failures pass through unchanged.
func wrapGatewayError(step string, err error) error {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		return &ProvisioningError{Step: step, System: statusErr.System, Err: err}
	}
	return err
}
