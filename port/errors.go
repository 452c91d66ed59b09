package port

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// TransportError wraps a failure to reach the backend or read its answer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) GetOp() string {
	return e.Op
}

// BusinessRejection is returned when the backend understood the request and
// refused it (duplicate number, closed period...).
type BusinessRejection struct {
	Op      string
	Message string
}

func (e *BusinessRejection) Error() string {
	return fmt.Sprintf("%s: rejected: %s", e.Op, e.Message)
}

func (e *BusinessRejection) GetOp() string {
	return e.Op
}

// Transport wraps err as a *TransportError unless it already carries a
// classification (rejection, not found, context cancellation).
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	var rejection *BusinessRejection
	var transport *TransportError
	if errors.As(err, &rejection) || errors.As(err, &transport) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
