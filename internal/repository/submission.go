// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// SubmitPackage publishes a finished upload as a new package version.
// The response must name a download URL for the created version.
func (c *Client) SubmitPackage(ctx context.Context, req SubmitPackageRequest) (*SubmissionResult, error) {
	const op = "submit package"

	if req.Categories == nil {
		req.Categories = []string{}
	}
	if req.Communities == nil {
		req.Communities = []string{}
	}
	if req.CommunityCategories == nil {
		req.CommunityCategories = map[string][]string{}
	}

	resp, err := c.doJSON(ctx, http.MethodPost, c.endpoint("api/experimental/submission/submit/"), req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, NewStatusError(op, resp)
	}

	var result SubmissionResult
	if err := decodeJSON(resp.Body, &result); err != nil {
		return nil, &ProtocolError{Operation: op, Status: resp.StatusCode, Reason: err.Error()}
	}
	if result.PackageVersion.DownloadURL == "" {
		return nil, &ProtocolError{Operation: op, Status: resp.StatusCode, Reason: "response is missing package_version.download_url"}
	}
	if u, err := url.Parse(result.PackageVersion.DownloadURL); err != nil || !u.IsAbs() {
		return nil, &ProtocolError{
			Operation: op,
			Status:    resp.StatusCode,
			Reason:    fmt.Sprintf("invalid package_version.download_url %q", result.PackageVersion.DownloadURL),
		}
	}
	return &result, nil
}
