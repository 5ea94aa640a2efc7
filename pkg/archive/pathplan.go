// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"fmt"
	"strings"
)

// forbiddenPathChars are rejected in every path segment. Together with the
// control characters 1-31 they cover the most restrictive target filesystem.
const forbiddenPathChars = `<>:"/\|?*`

// ErrInvalidPath is the sentinel error wrapped by InvalidPathError.
var ErrInvalidPath = errors.New("invalid archive path")

// InvalidPathError is returned when a destination path fails validation.
type InvalidPathError struct {
	Parsed   string
	Original string
}

// Error implements the error interface.
func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid archive path %q (parsed from %q)", e.Parsed, e.Original)
}

// Unwrap returns ErrInvalidPath so callers can use errors.Is.
func (e *InvalidPathError) Unwrap() error { return ErrInvalidPath }

// NormalizePath converts raw into an archive-relative path.
//
// Both separator conventions are accepted and folded to '/'. Leading
// separators and leading segments made only of dots ("." and ".." but also
// "...") are stripped so no entry can escape the archive root, and a single
// trailing separator is trimmed. When validate is true every segment must
// contain something other than dots and none of the forbidden characters.
func NormalizePath(raw string, validate bool) (string, error) {
	p := strings.ReplaceAll(raw, `\`, "/")
	for {
		p = strings.TrimLeft(p, "/")
		seg, rest, found := strings.Cut(p, "/")
		if seg == "" || strings.Trim(seg, ".") != "" {
			break
		}
		if !found {
			p = ""
			break
		}
		p = rest
	}
	p = strings.TrimSuffix(p, "/")

	if !validate {
		return p, nil
	}

	for _, seg := range strings.Split(p, "/") {
		if !validSegment(seg) {
			return "", &InvalidPathError{Parsed: p, Original: raw}
		}
	}
	return p, nil
}

func validSegment(seg string) bool {
	if strings.Trim(seg, ".") == "" {
		return false
	}
	for _, r := range seg {
		if r >= 1 && r <= 31 {
			return false
		}
		if strings.ContainsRune(forbiddenPathChars, r) {
			return false
		}
	}
	return true
}

// JoinTarget joins an archive destination prefix and a relative path using
// '/' without cleaning, so traversal segments survive for NormalizePath to
// handle.
func JoinTarget(target, rel string) string {
	target = strings.TrimRight(strings.ReplaceAll(target, `\`, "/"), "/")
	if target == "" {
		return rel
	}
	return target + "/" + rel
}
