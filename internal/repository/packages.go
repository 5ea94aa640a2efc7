// SPDX-License-Identifier: MPL-2.0

package repository

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// GetPackage fetches metadata for namespace/name. A missing package yields
// an error wrapping ErrPackageNotFound.
func (c *Client) GetPackage(ctx context.Context, namespace, name string) (*Package, error) {
	op := fmt.Sprintf("get package %s/%s", namespace, name)
	reqURL := c.endpoint("api/experimental/package", url.PathEscape(namespace), url.PathEscape(name)+"/")

	var pkg Package
	notFound := fmt.Errorf("%s: %w", op, ErrPackageNotFound)
	if err := c.getJSON(ctx, op, reqURL, notFound, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ListPackages returns every package of the legacy listing, scoped to a
// community when one is given. Versions of each package are ordered newest
// first by semantic version.
func (c *Client) ListPackages(ctx context.Context, community string) ([]ListedPackage, error) {
	op := "list packages"
	reqURL := c.endpoint("api/v1/package/")
	if community != "" {
		op += " in " + community
		reqURL = c.endpoint("c", url.PathEscape(community), "api/v1/package/")
	}

	var pkgs []ListedPackage
	if err := c.getJSON(ctx, op, reqURL, nil, &pkgs); err != nil {
		return nil, err
	}
	for i := range pkgs {
		SortVersionsDesc(pkgs[i].Versions)
	}
	return pkgs, nil
}

// CompareVersions compares two MAJOR.MINOR.PATCH strings by semantic
// version. Strings that are not valid versions sort before valid ones.
func CompareVersions(a, b string) int {
	return semver.Compare(canonical(a), canonical(b))
}

// SortVersionsDesc orders versions newest first. The sort is stable so
// entries with equal versions keep their listing order.
func SortVersionsDesc(versions []ListedVersion) {
	slices.SortStableFunc(versions, func(a, b ListedVersion) int {
		return CompareVersions(b.VersionNumber, a.VersionNumber)
	})
}

// canonical prefixes the "v" that x/mod/semver requires.
func canonical(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
