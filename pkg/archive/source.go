// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

const (
	// SourceFile reads entry contents from a path on disk at write time.
	SourceFile SourceKind = iota + 1
	// SourceBytes writes an in-memory buffer.
	SourceBytes
)

type (
	// SourceKind tags the variant held by a Source.
	SourceKind int

	// Source is the lazily resolved content of a planned entry. Nothing is
	// read until the archive is written.
	Source struct {
		kind SourceKind
		path string
		data []byte
	}
)

// FileSource returns a Source that reads the file at path.
func FileSource(path string) Source {
	return Source{kind: SourceFile, path: path}
}

// BytesSource returns a Source backed by a copy of data.
func BytesSource(data []byte) Source {
	return Source{kind: SourceBytes, data: bytes.Clone(data)}
}

// Kind returns the variant tag.
func (s Source) Kind() SourceKind { return s.kind }

// Path returns the file path of a SourceFile, or "" for other variants.
func (s Source) Path() string { return s.path }

// Open returns a reader over the entry contents.
func (s Source) Open() (io.ReadCloser, error) {
	switch s.kind {
	case SourceFile:
		f, err := os.Open(s.path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", s.path, err)
		}
		return f, nil
	case SourceBytes:
		return io.NopCloser(bytes.NewReader(s.data)), nil
	default:
		return nil, fmt.Errorf("unknown source kind %d", s.kind)
	}
}

// Describe returns a short human-readable description for logs.
func (s Source) Describe() string {
	switch s.kind {
	case SourceFile:
		return "file:" + s.path
	case SourceBytes:
		return fmt.Sprintf("bytes:%d", len(s.data))
	default:
		return "unknown"
	}
}
