// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPlanConflict is the sentinel error wrapped by PlanError.
	ErrPlanConflict = errors.New("archive plan has conflicts")
	// ErrMissingFile is the sentinel error wrapped by MissingFileError.
	ErrMissingFile = errors.New("required file not found")
)

type (
	// PlanError aggregates every error diagnostic of a rejected plan so the
	// user sees all conflicts in one pass.
	PlanError struct {
		Diagnostics []Diagnostic
	}

	// MissingFileError is returned when the icon or readme is missing.
	MissingFileError struct {
		Role string // "icon" or "readme"
		Path string
	}
)

// Error lists every conflict on its own line.
func (e *PlanError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "archive plan has %d conflict(s)", len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		sb.WriteString("\n  - ")
		sb.WriteString(d.Path)
		sb.WriteString(": ")
		sb.WriteString(d.Message)
	}
	return sb.String()
}

// Unwrap returns ErrPlanConflict so callers can use errors.Is.
func (e *PlanError) Unwrap() error { return ErrPlanConflict }

// Error implements the error interface.
func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s file not found at %s", e.Role, e.Path)
}

// Unwrap returns ErrMissingFile so callers can use errors.Is.
func (e *MissingFileError) Unwrap() error { return ErrMissingFile }
