// SPDX-License-Identifier: MPL-2.0

package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// HTTPStatusError is implemented by errors that carry the HTTP status code of
// a failed response, so IsTransient can classify them.
type HTTPStatusError interface {
	error
	HTTPStatus() int
}

// IsTransient reports whether err is a network or server failure that may
// succeed on retry.
//
// Context cancellation and deadline errors are never transient because
// retrying a cancelled operation is never useful.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr HTTPStatusError
	if errors.As(err, &statusErr) {
		code := statusErr.HTTPStatus()
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection reset by peer") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "Temporary failure in name resolution") ||
		strings.Contains(errStr, "TLS handshake timeout")
}
