// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"fmt"
	"regexp"
)

var versionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
var ErrInvalidVersion = errors.New("invalid package version")

// InvalidVersionError is returned when a version string is not of the form
// MAJOR.MINOR.PATCH. Pre-release and build metadata suffixes are not accepted.
type InvalidVersionError struct {
	Value string
}

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid package version %q (expected MAJOR.MINOR.PATCH, e.g. 1.0.0)", e.Value)
}

// Unwrap returns ErrInvalidVersion so callers can use errors.Is.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// ValidateVersion returns an *InvalidVersionError when v is not a strict
// numeric MAJOR.MINOR.PATCH version.
func ValidateVersion(v string) error {
	if !versionPattern.MatchString(v) {
		return &InvalidVersionError{Value: v}
	}
	return nil
}
