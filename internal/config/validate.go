// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/modcrate/modcrate/pkg/archive"
)

// ErrInvalidConfig is the sentinel error wrapped by ValidationError.
var ErrInvalidConfig = errors.New("invalid config")

// identifierPattern matches namespaces and package names accepted by the
// repository.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid configuration (%d problems):\n  - %s",
		len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

// Unwrap returns ErrInvalidConfig for errors.Is compatibility.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

// ValidateBuild checks everything a build needs. File existence is left to
// the builder.
func (c *Config) ValidateBuild() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	checkIdentifier := func(field, value string) {
		switch {
		case value == "":
			add("package.%s is required", field)
		case !identifierPattern.MatchString(value):
			add("package.%s %q may only contain letters, digits and underscores", field, value)
		}
	}
	checkIdentifier("namespace", c.Package.Namespace)
	checkIdentifier("name", c.Package.Name)

	if c.Package.VersionNumber == "" {
		add("package.version_number is required")
	} else if err := archive.ValidateVersion(c.Package.VersionNumber); err != nil {
		add("package.version_number: %v", err)
	}

	if c.Package.WebsiteURL != "" {
		if u, err := url.Parse(c.Package.WebsiteURL); err != nil || !u.IsAbs() {
			add("package.website_url %q is not an absolute URL", c.Package.WebsiteURL)
		}
	}

	for _, key := range sortedKeys(c.Package.Dependencies) {
		parts := strings.Split(key, "-")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			add("package.dependencies key %q must be \"Namespace-Name\"", key)
		}
		if err := archive.ValidateVersion(c.Package.Dependencies[key]); err != nil {
			add("package.dependencies.%s: %v", key, err)
		}
	}

	for i, cp := range c.Build.Copy {
		if cp.Source == "" {
			add("build.copy[%d].source is required", i)
		}
	}
	for i, inst := range c.Install.Installers {
		if inst.Identifier == "" {
			add("install.installers[%d].identifier is required", i)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ValidatePublish checks everything a publish needs on top of a build.
func (c *Config) ValidatePublish() error {
	var problems []string
	if err := c.ValidateBuild(); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			problems = append(problems, ve.Problems...)
		}
	}

	if c.Publish.Repository == "" {
		problems = append(problems, "publish.repository is required")
	}
	if c.Publish.Token == "" {
		problems = append(problems, "a repository token is required (--token or MODCRATE_TOKEN)")
	}
	if len(c.Publish.Communities) == 0 {
		problems = append(problems, "publish.communities must list at least one community")
	}
	for _, community := range sortedKeys(c.Publish.CommunityCategories) {
		if !slices.Contains(c.Publish.Communities, community) {
			problems = append(problems, fmt.Sprintf("publish.community_categories.%s is not in publish.communities", community))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
