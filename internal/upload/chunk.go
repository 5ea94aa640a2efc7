// SPDX-License-Identifier: MPL-2.0

package upload

import (
	"context"
	"crypto/md5" //nolint:gosec // Content-MD5 is a transport integrity check required by the storage API.
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/charmbracelet/log"

	"github.com/modcrate/modcrate/internal/repository"
	"github.com/modcrate/modcrate/internal/retry"
)

// DefaultChunkBufferSize is the read buffer used while hashing a part.
const DefaultChunkBufferSize = 64 << 10

// ErrMissingETag is returned when a part upload succeeds without an ETag.
var ErrMissingETag = errors.New("response is missing ETag header")

type (
	// ChunkError reports the failure of a single part.
	ChunkError struct {
		PartNumber int
		Err        error
	}

	// ChunkUploader sends one byte range of the artifact to its presigned URL.
	ChunkUploader struct {
		httpClient *http.Client
		userAgent  string
		retry      retry.Policy
		bufSize    int
		logger     *log.Logger
	}
)

// Error implements the error interface.
func (e *ChunkError) Error() string {
	return fmt.Sprintf("uploading part %d: %v", e.PartNumber, e.Err)
}

// Unwrap returns the underlying failure.
func (e *ChunkError) Unwrap() error { return e.Err }

// NewChunkUploader creates an uploader sharing the client's HTTP transport,
// timeout and retry policy. The bearer token is never sent to part URLs.
func NewChunkUploader(client *repository.Client, logger *log.Logger) *ChunkUploader {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ChunkUploader{
		httpClient: client.HTTPClient(),
		userAgent:  client.UserAgent(),
		retry:      client.RetryPolicy(),
		bufSize:    DefaultChunkBufferSize,
		logger:     logger,
	}
}

// Upload hashes and PUTs the part's byte range of filePath, returning the
// acknowledgement the server needs to finish the session.
//
// Each call opens its own file handle, so calls may run concurrently.
func (u *ChunkUploader) Upload(ctx context.Context, filePath string, part repository.UploadPart) (repository.CompletedPart, error) {
	fail := func(err error) (repository.CompletedPart, error) {
		return repository.CompletedPart{}, &ChunkError{PartNumber: part.PartNumber, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fail(fmt.Errorf("opening artifact: %w", err))
	}
	defer func() { _ = f.Close() }() // read-only file handle

	sum, err := ChunkChecksum(f, part.Offset, part.Length, u.bufSize)
	if err != nil {
		return fail(err)
	}
	contentMD5 := base64.StdEncoding.EncodeToString(sum)

	var etag string
	err = retry.Do(ctx, u.retry, func(attempt int) error {
		if attempt > 0 {
			u.logger.Debug("retrying part", "part", part.PartNumber, "attempt", attempt+1)
		}
		etag, err = u.put(ctx, f, part, contentMD5)
		return err
	})
	if err != nil {
		return fail(err)
	}

	u.logger.Debug("uploaded part", "part", part.PartNumber, "bytes", part.Length)
	return repository.CompletedPart{ETag: etag, PartNumber: part.PartNumber}, nil
}

// put sends the byte range once and returns the ETag of the stored part.
func (u *ChunkUploader) put(ctx context.Context, f *os.File, part repository.UploadPart, contentMD5 string) (string, error) {
	op := fmt.Sprintf("upload part %d", part.PartNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, part.URL,
		io.NewSectionReader(f, part.Offset, part.Length))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.ContentLength = part.Length
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(io.NewSectionReader(f, part.Offset, part.Length)), nil
	}
	req.Header.Set("Content-MD5", contentMD5)
	req.Header.Set("User-Agent", u.userAgent)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		// Part URLs are presigned; keep their credentials out of errors.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = repository.RedactURL(urlErr.URL)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", repository.NewStatusError(op, resp)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", ErrMissingETag
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10)) //nolint:errcheck // Drain for connection reuse.
	return etag, nil
}

// ChunkChecksum returns the MD5 digest of exactly length bytes of r starting
// at offset, reading through a buffer of bufSize bytes. The digest does not
// depend on bufSize. A range that runs past the end of r is an error.
func ChunkChecksum(r io.ReaderAt, offset, length int64, bufSize int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("invalid byte range offset=%d length=%d", offset, length)
	}
	if bufSize <= 0 {
		bufSize = DefaultChunkBufferSize
	}

	h := md5.New() //nolint:gosec // See import.
	// Hide WriterTo so CopyBuffer goes through buf.
	src := struct{ io.Reader }{io.NewSectionReader(r, offset, length)}
	n, err := io.CopyBuffer(h, src, make([]byte, bufSize))
	if err != nil {
		return nil, fmt.Errorf("hashing byte range: %w", err)
	}
	if n != length {
		return nil, fmt.Errorf("hashing byte range: read %d of %d bytes: %w", n, length, io.ErrUnexpectedEOF)
	}
	return h.Sum(nil), nil
}
