// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrProtocol is the sentinel wrapped by every ProtocolError.
	ErrProtocol = errors.New("repository protocol violation")

	// ErrPackageNotFound is returned when a package lookup yields 404.
	ErrPackageNotFound = errors.New("package not found")
)

type (
	// ProtocolError reports a response that does not match the documented
	// wire contract, such as a missing required field.
	ProtocolError struct {
		Operation string
		Status    int
		Reason    string
	}

	// StatusError reports an unexpected HTTP status code. Body holds a
	// truncated copy of the response body for diagnostics.
	StatusError struct {
		Operation string
		Code      int
		Body      string
	}
)

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Operation, e.Reason, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
}

// Unwrap returns ErrProtocol for errors.Is compatibility.
func (e *ProtocolError) Unwrap() error { return ErrProtocol }

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: unexpected status %d %s", e.Operation, e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.Code }

// Unwrap returns ErrProtocol so callers can treat unexpected statuses as
// protocol failures.
func (e *StatusError) Unwrap() error { return ErrProtocol }
