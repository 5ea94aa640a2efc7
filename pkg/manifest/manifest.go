// SPDX-License-Identifier: MPL-2.0

// Package manifest builds and parses the manifest.json document embedded in
// every package artifact.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

type (
	// Installer declares an installer the package requires on the client side.
	Installer struct {
		Identifier string `json:"identifier"`
	}

	// Manifest is the canonical package descriptor. Field order matches the
	// serialized document.
	Manifest struct {
		Namespace     string      `json:"namespace"`
		Name          string      `json:"name"`
		Description   string      `json:"description"`
		VersionNumber string      `json:"version_number"`
		Dependencies  []string    `json:"dependencies"`
		WebsiteURL    string      `json:"website_url"`
		Installers    []Installer `json:"installers"`
	}

	// Package is the subset of project configuration a manifest is built from.
	Package struct {
		Namespace   string
		Name        string
		Description string
		Version     string
		WebsiteURL  string
		// Dependencies maps "namespace-name" to a version.
		Dependencies map[string]string
		Installers   []string
	}
)

// FormatDependency renders a dependency identifier as "namespace-name-version".
func FormatDependency(fullName, version string) string {
	return fmt.Sprintf("%s-%s", fullName, version)
}

// New builds a manifest from pkg. Dependencies are sorted so the serialized
// document is stable across runs.
func New(pkg Package) Manifest {
	deps := make([]string, 0, len(pkg.Dependencies))
	for name, version := range pkg.Dependencies {
		deps = append(deps, FormatDependency(name, version))
	}
	slices.Sort(deps)

	installers := make([]Installer, 0, len(pkg.Installers))
	for _, id := range pkg.Installers {
		installers = append(installers, Installer{Identifier: id})
	}

	return Manifest{
		Namespace:     pkg.Namespace,
		Name:          pkg.Name,
		Description:   pkg.Description,
		VersionNumber: pkg.Version,
		Dependencies:  deps,
		WebsiteURL:    pkg.WebsiteURL,
		Installers:    installers,
	}
}

// Marshal returns the manifest as two-space indented JSON.
func (m Manifest) Marshal() ([]byte, error) {
	if m.Dependencies == nil {
		m.Dependencies = []string{}
	}
	if m.Installers == nil {
		m.Installers = []Installer{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a serialized manifest.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decoding manifest: %w", err)
	}
	return m, nil
}
