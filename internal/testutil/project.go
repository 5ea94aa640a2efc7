// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// Project is a fixture package project on disk.
type Project struct {
	Dir       string
	Namespace string
	Name      string
	Version   string

	extra strings.Builder
}

// NewProject creates a project in a fresh temp directory with an icon, a
// readme and no copy mappings. Write must be called to emit modcrate.toml.
func NewProject(t testing.TB, namespace, name, version string) *Project {
	t.Helper()
	p := &Project{
		Dir:       t.TempDir(),
		Namespace: namespace,
		Name:      name,
		Version:   version,
	}
	MustWriteFile(t, filepath.Join(p.Dir, "icon.png"), []byte("\x89PNG\r\n\x1a\nfixture"))
	MustWriteFile(t, filepath.Join(p.Dir, "README.md"), []byte("# "+name+"\n"))
	return p
}

// AddFile writes a project file at the slash-separated relative path.
func (p *Project) AddFile(t testing.TB, rel, content string) *Project {
	t.Helper()
	MustWriteFile(t, filepath.Join(p.Dir, filepath.FromSlash(rel)), []byte(content))
	return p
}

// AddCopy appends a [[build.copy]] mapping.
func (p *Project) AddCopy(source, target string) *Project {
	fmt.Fprintf(&p.extra, "\n[[build.copy]]\nsource = %q\ntarget = %q\n", source, target)
	return p
}

// AddTOML appends raw TOML after the generated sections.
func (p *Project) AddTOML(raw string) *Project {
	p.extra.WriteString("\n" + raw + "\n")
	return p
}

// Write emits modcrate.toml and returns its path.
func (p *Project) Write(t testing.TB) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[config]\nschema_version = \"0.0.1\"\n\n")
	fmt.Fprintf(&b, "[package]\nnamespace = %q\nname = %q\nversion_number = %q\n", p.Namespace, p.Name, p.Version)
	fmt.Fprintf(&b, "description = \"fixture\"\nwebsite_url = \"https://example.com/\"\n\n")
	fmt.Fprintf(&b, "[build]\nicon = \"./icon.png\"\nreadme = \"./README.md\"\noutdir = \"./build\"\n")
	b.WriteString(p.extra.String())

	path := filepath.Join(p.Dir, "modcrate.toml")
	MustWriteFile(t, path, []byte(b.String()))
	return path
}
