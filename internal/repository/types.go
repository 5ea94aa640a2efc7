// SPDX-License-Identifier: MPL-2.0

package repository

import "github.com/google/uuid"

type (
	// InitiateUploadRequest starts a chunked upload session.
	InitiateUploadRequest struct {
		Filename      string `json:"filename"`
		FileSizeBytes int64  `json:"file_size_bytes"`
	}

	// UserMedia describes the server-side media object of a session.
	UserMedia struct {
		UUID     uuid.UUID `json:"uuid"`
		Filename string    `json:"filename"`
		Size     int64     `json:"size"`
		Datetime string    `json:"datetime_created,omitempty"`
		Expiry   string    `json:"expiry,omitempty"`
		Status   string    `json:"status,omitempty"`
	}

	// UploadPart is one byte range of the artifact and its destination URL.
	UploadPart struct {
		PartNumber int    `json:"part_number"`
		URL        string `json:"url"`
		Offset     int64  `json:"offset"`
		Length     int64  `json:"length"`
	}

	// UploadSession is the validated result of InitiateUpload.
	UploadSession struct {
		Media UserMedia
		Parts []UploadPart
	}

	// CompletedPart acknowledges one uploaded part.
	CompletedPart struct {
		ETag       string `json:"ETag"`
		PartNumber int    `json:"PartNumber"`
	}

	// SubmitPackageRequest publishes an uploaded artifact as a package version.
	SubmitPackageRequest struct {
		AuthorName          string              `json:"author_name"`
		Categories          []string            `json:"categories"`
		Communities         []string            `json:"communities"`
		CommunityCategories map[string][]string `json:"community_categories"`
		HasNSFWContent      bool                `json:"has_nsfw_content"`
		UploadUUID          uuid.UUID           `json:"upload_uuid"`
	}

	// SubmittedVersion is the package version created by a submission.
	SubmittedVersion struct {
		Namespace     string `json:"namespace"`
		Name          string `json:"name"`
		VersionNumber string `json:"version_number"`
		FullName      string `json:"full_name"`
		DownloadURL   string `json:"download_url"`
	}

	// SubmissionResult is the response of SubmitPackage.
	SubmissionResult struct {
		PackageVersion SubmittedVersion `json:"package_version"`
	}

	// PackageVersion is one published version in lookup responses.
	PackageVersion struct {
		Namespace     string   `json:"namespace"`
		Name          string   `json:"name"`
		VersionNumber string   `json:"version_number"`
		FullName      string   `json:"full_name"`
		Description   string   `json:"description"`
		Icon          string   `json:"icon"`
		Dependencies  []string `json:"dependencies"`
		DownloadURL   string   `json:"download_url"`
		Downloads     int64    `json:"downloads"`
		DateCreated   string   `json:"date_created"`
		WebsiteURL    string   `json:"website_url"`
		IsActive      bool     `json:"is_active"`
	}

	// CommunityListing ties a package to a community.
	CommunityListing struct {
		Community      string   `json:"community"`
		Categories     []string `json:"categories"`
		HasNSFWContent bool     `json:"has_nsfw_content"`
		ReviewStatus   string   `json:"review_status"`
	}

	// Package is the metadata returned by GetPackage.
	Package struct {
		Namespace         string             `json:"namespace"`
		Name              string             `json:"name"`
		FullName          string             `json:"full_name"`
		Owner             string             `json:"owner"`
		PackageURL        string             `json:"package_url"`
		DateCreated       string             `json:"date_created"`
		DateUpdated       string             `json:"date_updated"`
		RatingScore       int                `json:"rating_score"`
		IsPinned          bool               `json:"is_pinned"`
		IsDeprecated      bool               `json:"is_deprecated"`
		TotalDownloads    int64              `json:"total_downloads"`
		Latest            PackageVersion     `json:"latest"`
		CommunityListings []CommunityListing `json:"community_listings"`
	}

	// ListedVersion is a version entry of the legacy package list.
	ListedVersion struct {
		Name          string   `json:"name"`
		FullName      string   `json:"full_name"`
		Description   string   `json:"description"`
		VersionNumber string   `json:"version_number"`
		Dependencies  []string `json:"dependencies"`
		DownloadURL   string   `json:"download_url"`
		Downloads     int64    `json:"downloads"`
		DateCreated   string   `json:"date_created"`
		WebsiteURL    string   `json:"website_url"`
		IsActive      bool     `json:"is_active"`
		FileSize      int64    `json:"file_size"`
	}

	// ListedPackage is one package of the legacy package list.
	ListedPackage struct {
		Name           string          `json:"name"`
		FullName       string          `json:"full_name"`
		Owner          string          `json:"owner"`
		PackageURL     string          `json:"package_url"`
		DateUpdated    string          `json:"date_updated"`
		RatingScore    int             `json:"rating_score"`
		IsPinned       bool            `json:"is_pinned"`
		IsDeprecated   bool            `json:"is_deprecated"`
		HasNSFWContent bool            `json:"has_nsfw_content"`
		Categories     []string        `json:"categories"`
		Versions       []ListedVersion `json:"versions"`
	}

	// initiateUploadResponse is the wire shape of the initiate response.
	// Pointers distinguish absent fields from zero values.
	initiateUploadResponse struct {
		UserMedia  *userMediaWire `json:"user_media"`
		UploadURLs *[]UploadPart  `json:"upload_urls"`
	}

	userMediaWire struct {
		UUID     *string `json:"uuid"`
		Filename *string `json:"filename"`
		Size     *int64  `json:"size"`
		Datetime string  `json:"datetime_created"`
		Expiry   string  `json:"expiry"`
		Status   string  `json:"status"`
	}

	finishUploadRequest struct {
		Parts []CompletedPart `json:"parts"`
	}
)
