// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// SeverityWarning marks a non-fatal planning outcome. The archive is
	// still written but the build reports a degraded status.
	SeverityWarning Severity = iota + 1
	// SeverityError marks a conflict that prevents the archive from being written.
	SeverityError
)

type (
	// Severity classifies a planning diagnostic.
	Severity int

	// Diagnostic records one planning outcome worth reporting.
	Diagnostic struct {
		Severity Severity
		Path     string
		Message  string
	}

	// Entry is one planned archive member.
	Entry struct {
		Path   string
		Source Source
	}

	// Plan accumulates archive entries keyed by their case-folded path and
	// rejects layouts that cannot be represented on every target filesystem.
	//
	// Paths passed to Add must already be normalized with NormalizePath.
	Plan struct {
		keys    map[string]string   // lower-cased path -> original path
		dirs    map[string]struct{} // lower-cased directory prefixes
		order   []string            // original paths, insertion order
		sources map[string]Source   // original path -> source
		diags   []Diagnostic
		logger  *log.Logger
	}
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// String renders the diagnostic as "severity: path: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Path, d.Message)
}

// NewPlan returns an empty plan. A nil logger discards output.
func NewPlan(logger *log.Logger) *Plan {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Plan{
		keys:    make(map[string]string),
		dirs:    make(map[string]struct{}),
		sources: make(map[string]Source),
		logger:  logger,
	}
}

// Add plans src at path.
//
// Re-adding a path with identical casing replaces the source and records a
// warning; the entry keeps its original position. Re-adding it with
// different casing, placing a file where a directory is implied, or placing
// a directory where a file exists records an error and leaves the plan
// unchanged.
func (p *Plan) Add(path string, src Source) {
	key := strings.ToLower(path)
	prefixes := dirPrefixes(key)

	if existing, ok := p.keys[key]; ok {
		if existing == path {
			p.sources[path] = src
			p.warn(path, "overwriting previously planned entry")
			return
		}
		p.fail(path, fmt.Sprintf("differs only in case from planned entry %q", existing))
		return
	}

	if _, ok := p.dirs[key]; ok {
		p.fail(path, "file conflicts with a planned directory of the same name")
		return
	}

	for _, prefix := range prefixes {
		if existing, ok := p.keys[prefix]; ok {
			p.fail(path, fmt.Sprintf("directory %q conflicts with planned file %q", prefix, existing))
			return
		}
	}

	p.keys[key] = path
	for _, prefix := range prefixes {
		p.dirs[prefix] = struct{}{}
	}
	p.order = append(p.order, path)
	p.sources[path] = src
	p.logger.Debug("planned entry", "path", path, "source", src.Describe())
}

// Entries returns the planned entries in insertion order.
func (p *Plan) Entries() []Entry {
	entries := make([]Entry, 0, len(p.order))
	for _, path := range p.order {
		entries = append(entries, Entry{Path: path, Source: p.sources[path]})
	}
	return entries
}

// Len returns the number of planned entries.
func (p *Plan) Len() int { return len(p.order) }

// Lookup returns the source planned at path using case-insensitive matching.
func (p *Plan) Lookup(path string) (Source, bool) {
	original, ok := p.keys[strings.ToLower(path)]
	if !ok {
		return Source{}, false
	}
	return p.sources[original], true
}

// Diagnostics returns every recorded diagnostic in the order it occurred.
func (p *Plan) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), p.diags...)
}

// Errors returns only the error diagnostics.
func (p *Plan) Errors() []Diagnostic {
	return p.filter(SeverityError)
}

// HasErrors reports whether any conflict makes the plan unusable.
func (p *Plan) HasErrors() bool { return len(p.filter(SeverityError)) > 0 }

// HasWarnings reports whether any non-fatal diagnostic was recorded.
func (p *Plan) HasWarnings() bool { return len(p.filter(SeverityWarning)) > 0 }

// Warn records a caller-detected, non-fatal planning issue.
func (p *Plan) Warn(path, message string) { p.warn(path, message) }

// Fail records a caller-detected planning error.
func (p *Plan) Fail(path, message string) { p.fail(path, message) }

func (p *Plan) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range p.diags {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

func (p *Plan) warn(path, message string) {
	p.diags = append(p.diags, Diagnostic{Severity: SeverityWarning, Path: path, Message: message})
	p.logger.Warn(message, "path", path)
}

func (p *Plan) fail(path, message string) {
	p.diags = append(p.diags, Diagnostic{Severity: SeverityError, Path: path, Message: message})
	p.logger.Error(message, "path", path)
}

// dirPrefixes returns every proper prefix of key: "a/b/c" yields "a" and "a/b".
func dirPrefixes(key string) []string {
	var prefixes []string
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			prefixes = append(prefixes, key[:i])
		}
	}
	return prefixes
}
