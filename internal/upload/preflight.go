// SPDX-License-Identifier: MPL-2.0

package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/modcrate/modcrate/internal/repository"
)

// ErrVersionNotNewer is returned by CheckVersion when the repository already
// has the version being published, or a newer one.
var ErrVersionNotNewer = errors.New("version is not newer than the published one")

type (
	// PackageLookup fetches package metadata.
	PackageLookup interface {
		GetPackage(ctx context.Context, namespace, name string) (*repository.Package, error)
	}

	// VersionConflictError names the local and published versions.
	VersionConflictError struct {
		Package   string
		Version   string
		Published string
	}
)

// Error implements the error interface.
func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s %s is not newer than published version %s", e.Package, e.Version, e.Published)
}

// Unwrap returns ErrVersionNotNewer for errors.Is compatibility.
func (e *VersionConflictError) Unwrap() error { return ErrVersionNotNewer }

// CheckVersion refuses a version that is not newer than the latest
// published one. A package that was never published passes.
func CheckVersion(ctx context.Context, lookup PackageLookup, namespace, name, version string) error {
	pkg, err := lookup.GetPackage(ctx, namespace, name)
	if errors.Is(err, repository.ErrPackageNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking published version: %w", err)
	}

	published := pkg.Latest.VersionNumber
	if published != "" && repository.CompareVersions(version, published) <= 0 {
		return &VersionConflictError{
			Package:   namespace + "-" + name,
			Version:   version,
			Published: published,
		}
	}
	return nil
}
