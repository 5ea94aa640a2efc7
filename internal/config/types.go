// SPDX-License-Identifier: MPL-2.0

package config

import (
	"maps"
	"path/filepath"
	"slices"
)

const (
	// MergeOverrideIfUnset only fills fields the receiver has not set.
	MergeOverrideIfUnset MergeMode = iota
	// MergeAlwaysOverride replaces every field the other layer has set.
	MergeAlwaysOverride
)

type (
	// MergeMode selects how Merge treats fields set on both sides.
	MergeMode int

	// Config is the resolved configuration of one invocation. A zero field
	// means "unset" for merging purposes.
	Config struct {
		Meta    MetaSection    `toml:"config"`
		Package PackageSection `toml:"package"`
		Build   BuildSection   `toml:"build"`
		Publish PublishSection `toml:"publish"`
		Install InstallSection `toml:"install"`

		// ProjectDir is the directory relative paths are resolved against.
		ProjectDir string `toml:"-"`
	}

	// MetaSection versions the file format.
	MetaSection struct {
		SchemaVersion string `toml:"schema_version,omitempty"`
	}

	// PackageSection identifies the package.
	PackageSection struct {
		Namespace           string            `toml:"namespace,omitempty"`
		Name                string            `toml:"name,omitempty"`
		VersionNumber       string            `toml:"version_number,omitempty"`
		Description         string            `toml:"description,omitempty"`
		WebsiteURL          string            `toml:"website_url,omitempty"`
		ContainsNSFWContent *bool             `toml:"contains_nsfw_content,omitempty"`
		Dependencies        map[string]string `toml:"dependencies,omitempty"`
	}

	// BuildSection controls the archive build.
	BuildSection struct {
		Icon   string     `toml:"icon,omitempty"`
		Readme string     `toml:"readme,omitempty"`
		OutDir string     `toml:"outdir,omitempty"`
		Copy   []CopyPath `toml:"copy,omitempty"`
	}

	// CopyPath maps a project path into the archive.
	CopyPath struct {
		Source string `toml:"source"`
		Target string `toml:"target"`
	}

	// PublishSection controls uploads and submission. Token is never read
	// from or written to the project file.
	PublishSection struct {
		Repository          string              `toml:"repository,omitempty"`
		Communities         []string            `toml:"communities,omitempty"`
		Categories          []string            `toml:"categories,omitempty"`
		CommunityCategories map[string][]string `toml:"community_categories,omitempty"`
		Concurrency         int                 `toml:"concurrency,omitempty"`
		Token               string              `toml:"-"`
	}

	// InstallSection lists installers declared in the manifest.
	InstallSection struct {
		Installers []Installer `toml:"installers,omitempty"`
	}

	// Installer names an installer by identifier.
	Installer struct {
		Identifier string `toml:"identifier"`
	}
)

// Merge folds other into c section by section.
func (c *Config) Merge(other *Config, mode MergeMode) {
	if other == nil {
		return
	}
	c.Meta.Merge(other.Meta, mode)
	c.Package.Merge(other.Package, mode)
	c.Build.Merge(other.Build, mode)
	c.Publish.Merge(other.Publish, mode)
	c.Install.Merge(other.Install, mode)
	mergeValue(&c.ProjectDir, other.ProjectDir, mode)
}

// Merge folds other into s.
func (s *MetaSection) Merge(other MetaSection, mode MergeMode) {
	mergeValue(&s.SchemaVersion, other.SchemaVersion, mode)
}

// Merge folds other into s. Dependencies are replaced as a whole.
func (s *PackageSection) Merge(other PackageSection, mode MergeMode) {
	mergeValue(&s.Namespace, other.Namespace, mode)
	mergeValue(&s.Name, other.Name, mode)
	mergeValue(&s.VersionNumber, other.VersionNumber, mode)
	mergeValue(&s.Description, other.Description, mode)
	mergeValue(&s.WebsiteURL, other.WebsiteURL, mode)
	if other.ContainsNSFWContent != nil && (mode == MergeAlwaysOverride || s.ContainsNSFWContent == nil) {
		v := *other.ContainsNSFWContent
		s.ContainsNSFWContent = &v
	}
	if other.Dependencies != nil && (mode == MergeAlwaysOverride || s.Dependencies == nil) {
		s.Dependencies = maps.Clone(other.Dependencies)
	}
}

// Merge folds other into s. Copy paths are replaced as a whole.
func (s *BuildSection) Merge(other BuildSection, mode MergeMode) {
	mergeValue(&s.Icon, other.Icon, mode)
	mergeValue(&s.Readme, other.Readme, mode)
	mergeValue(&s.OutDir, other.OutDir, mode)
	mergeSlice(&s.Copy, other.Copy, mode)
}

// Merge folds other into s.
func (s *PublishSection) Merge(other PublishSection, mode MergeMode) {
	mergeValue(&s.Repository, other.Repository, mode)
	mergeSlice(&s.Communities, other.Communities, mode)
	mergeSlice(&s.Categories, other.Categories, mode)
	if other.CommunityCategories != nil && (mode == MergeAlwaysOverride || s.CommunityCategories == nil) {
		s.CommunityCategories = make(map[string][]string, len(other.CommunityCategories))
		for k, v := range other.CommunityCategories {
			s.CommunityCategories[k] = slices.Clone(v)
		}
	}
	mergeValue(&s.Concurrency, other.Concurrency, mode)
	mergeValue(&s.Token, other.Token, mode)
}

// Merge folds other into s.
func (s *InstallSection) Merge(other InstallSection, mode MergeMode) {
	mergeSlice(&s.Installers, other.Installers, mode)
}

// NSFW reports whether the package is flagged as containing NSFW content.
func (s PackageSection) NSFW() bool {
	return s.ContainsNSFWContent != nil && *s.ContainsNSFWContent
}

// FullName returns "namespace-name".
func (s PackageSection) FullName() string {
	return s.Namespace + "-" + s.Name
}

// ResolvePath makes p absolute against the project directory.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectDir, filepath.FromSlash(p))
}

// mergeValue copies src into dst when src is set and mode allows it.
func mergeValue[T comparable](dst *T, src T, mode MergeMode) {
	var zero T
	if src == zero {
		return
	}
	if mode == MergeAlwaysOverride || *dst == zero {
		*dst = src
	}
}

// mergeSlice is mergeValue for slices; nil means unset.
func mergeSlice[T any](dst *[]T, src []T, mode MergeMode) {
	if src == nil {
		return
	}
	if mode == MergeAlwaysOverride || *dst == nil {
		*dst = slices.Clone(src)
	}
}
