// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/modcrate/modcrate/internal/retry"
)

const userMediaPath = "api/experimental/usermedia"

// InitiateUpload opens an upload session for a file of the given size.
//
// The response must carry the media UUID, filename, size and a non-empty
// list of upload parts; anything less is a ProtocolError. The call is not
// retried because a repeated initiate would open a second session.
func (c *Client) InitiateUpload(ctx context.Context, filename string, size int64) (*UploadSession, error) {
	const op = "initiate upload"

	resp, err := c.doJSON(ctx, http.MethodPost, c.endpoint(userMediaPath, "initiate-upload/"),
		InitiateUploadRequest{Filename: filename, FileSizeBytes: size})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusCreated {
		return nil, NewStatusError(op, resp)
	}

	var wire initiateUploadResponse
	if err := decodeJSON(resp.Body, &wire); err != nil {
		return nil, &ProtocolError{Operation: op, Status: resp.StatusCode, Reason: err.Error()}
	}
	return wire.session(op, resp.StatusCode)
}

// session validates the initiate response and converts it.
func (w initiateUploadResponse) session(op string, status int) (*UploadSession, error) {
	missing := func(field string) error {
		return &ProtocolError{Operation: op, Status: status, Reason: "response is missing " + field}
	}

	if w.UserMedia == nil {
		return nil, missing("user_media")
	}
	m := w.UserMedia
	if m.UUID == nil || *m.UUID == "" {
		return nil, missing("user_media.uuid")
	}
	id, err := uuid.Parse(*m.UUID)
	if err != nil {
		return nil, &ProtocolError{Operation: op, Status: status, Reason: fmt.Sprintf("invalid user_media.uuid %q", *m.UUID)}
	}
	if m.Filename == nil {
		return nil, missing("user_media.filename")
	}
	if m.Size == nil {
		return nil, missing("user_media.size")
	}
	if w.UploadURLs == nil || len(*w.UploadURLs) == 0 {
		return nil, missing("upload_urls")
	}

	seen := make(map[int]bool, len(*w.UploadURLs))
	for i, p := range *w.UploadURLs {
		switch {
		case p.URL == "":
			return nil, missing(fmt.Sprintf("upload_urls[%d].url", i))
		case p.PartNumber <= 0:
			return nil, &ProtocolError{Operation: op, Status: status, Reason: fmt.Sprintf("upload_urls[%d] has invalid part_number %d", i, p.PartNumber)}
		case p.Offset < 0 || p.Length <= 0 || p.Offset+p.Length > *m.Size:
			return nil, &ProtocolError{Operation: op, Status: status, Reason: fmt.Sprintf("upload_urls[%d] has invalid range offset=%d length=%d", i, p.Offset, p.Length)}
		case seen[p.PartNumber]:
			return nil, &ProtocolError{Operation: op, Status: status, Reason: fmt.Sprintf("duplicate part_number %d", p.PartNumber)}
		}
		seen[p.PartNumber] = true
	}

	return &UploadSession{
		Media: UserMedia{
			UUID:     id,
			Filename: *m.Filename,
			Size:     *m.Size,
			Datetime: m.Datetime,
			Expiry:   m.Expiry,
			Status:   m.Status,
		},
		Parts: *w.UploadURLs,
	}, nil
}

// FinishUpload completes the session with the acknowledged parts, in any order.
func (c *Client) FinishUpload(ctx context.Context, id uuid.UUID, parts []CompletedPart) error {
	const op = "finish upload"

	resp, err := c.doJSON(ctx, http.MethodPost, c.endpoint(userMediaPath, id.String(), "finish-upload/"),
		finishUploadRequest{Parts: parts})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return NewStatusError(op, resp)
	}
	return nil
}

// AbortUpload discards the session. It is idempotent on the server and
// therefore retried on transient failures.
func (c *Client) AbortUpload(ctx context.Context, id uuid.UUID) error {
	const op = "abort upload"

	return retry.Do(ctx, c.retry, func(int) error {
		resp, err := c.doJSON(ctx, http.MethodPost, c.endpoint(userMediaPath, id.String(), "abort-upload/"), nil)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer func() { _ = resp.Body.Close() }() // read-only response body

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return NewStatusError(op, resp)
		}
		return nil
	})
}
