// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

// newProject writes a minimal project (icon + readme) into a temp dir and
// returns BuildOptions pointing at it.
func newProject(t *testing.T) BuildOptions {
	t.Helper()
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "icon.png"), "png-bytes")
	mustWrite(t, filepath.Join(dir, "README.md"), "# Hello")
	return BuildOptions{
		ProjectDir: dir,
		Namespace:  "TestTeam",
		Name:       "HelloWorld",
		Version:    "1.2.3",
		IconPath:   "icon.png",
		ReadmePath: "README.md",
		OutputDir:  "build",
		Manifest:   []byte(`{"name":"HelloWorld"}`),
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("opening artifact: %v", err)
	}
	defer func() { _ = zr.Close() }()

	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("opening artifact: %v", err)
	}
	defer func() { _ = zr.Close() }()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestBuild_FixedEntriesOnly(t *testing.T) {
	t.Parallel()

	opts := newProject(t)
	result, err := NewBuilder(opts).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if result.Status() != StatusOK {
		t.Errorf("Status() = %v, want StatusOK; diagnostics: %v", result.Status(), result.Diagnostics)
	}

	wantPath := filepath.Join(opts.ProjectDir, "build", "TestTeam-HelloWorld-1.2.3.zip")
	if result.Path != wantPath {
		t.Errorf("Path = %q, want %q", result.Path, wantPath)
	}

	names := zipNames(t, result.Path)
	want := []string{IconEntry, ReadmeEntry, ManifestEntry}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("entries = %v, want exactly %v", names, want)
	}

	files := readZip(t, result.Path)
	if files[IconEntry] != "png-bytes" || files[ReadmeEntry] != "# Hello" {
		t.Errorf("unexpected entry contents: %v", files)
	}
	if files[ManifestEntry] != `{"name":"HelloWorld"}` {
		t.Errorf("manifest = %q", files[ManifestEntry])
	}
}

func TestBuild_MissingCopySourceIsDegraded(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	opts := newProject(t)
	opts.Logger = log.New(&logs)
	opts.CopyPaths = []CopyPath{{Source: "does-not-exist", Target: "plugins"}}

	result, err := NewBuilder(opts).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if result.Status() != StatusDegraded {
		t.Errorf("Status() = %v, want StatusDegraded", result.Status())
	}
	if got := len(zipNames(t, result.Path)); got != 3 {
		t.Errorf("artifact has %d entries, want the 3 fixed entries", got)
	}
	if !strings.Contains(logs.String(), "does-not-exist") {
		t.Errorf("warning should name the missing source, logs:\n%s", logs.String())
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Severity != SeverityWarning {
		t.Errorf("want one warning diagnostic, got %v", result.Diagnostics)
	}
}

func TestBuild_CopyDirectoryAndFiles(t *testing.T) {
	t.Parallel()

	opts := newProject(t)
	mustWrite(t, filepath.Join(opts.ProjectDir, "dist", "b.dll"), "b")
	mustWrite(t, filepath.Join(opts.ProjectDir, "dist", "a.dll"), "a")
	mustWrite(t, filepath.Join(opts.ProjectDir, "dist", "sub", "c.txt"), "c")
	mustWrite(t, filepath.Join(opts.ProjectDir, "extra", "CHANGELOG.md"), "log")
	mustWrite(t, filepath.Join(opts.ProjectDir, "extra", "LICENSE"), "mit")
	opts.CopyPaths = []CopyPath{
		{Source: "dist", Target: "BepInEx/plugins"},
		{Source: "extra/CHANGELOG.md", Target: "docs/"},
		{Source: "extra/LICENSE", Target: "LICENSE.txt"},
		{Source: "extra/CHANGELOG.md", Target: ""},
	}

	result, err := NewBuilder(opts).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if result.Status() != StatusOK {
		t.Errorf("unexpected diagnostics: %v", result.Diagnostics)
	}

	want := []string{
		IconEntry, ReadmeEntry, ManifestEntry,
		"BepInEx/plugins/a.dll",
		"BepInEx/plugins/b.dll",
		"BepInEx/plugins/sub/c.txt",
		"docs/CHANGELOG.md",
		"LICENSE.txt",
		"CHANGELOG.md",
	}
	got := zipNames(t, result.Path)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("entries:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if files := readZip(t, result.Path); files["LICENSE.txt"] != "mit" {
		t.Errorf("LICENSE.txt = %q", files["LICENSE.txt"])
	}
}

func TestBuild_ConflictsAbortBeforeWriting(t *testing.T) {
	t.Parallel()

	opts := newProject(t)
	mustWrite(t, filepath.Join(opts.ProjectDir, "one", "readme.md"), "x")
	mustWrite(t, filepath.Join(opts.ProjectDir, "two", "icon.png", "nested"), "y")
	opts.CopyPaths = []CopyPath{
		{Source: "one", Target: ""},
		{Source: "two", Target: ""},
	}

	_, err := NewBuilder(opts).Build()
	if err == nil {
		t.Fatal("expected plan conflict error")
	}
	if !errors.Is(err, ErrPlanConflict) {
		t.Fatalf("error should wrap ErrPlanConflict, got %v", err)
	}
	var planErr *PlanError
	if !errors.As(err, &planErr) {
		t.Fatalf("error should be *PlanError, got %T", err)
	}
	if len(planErr.Diagnostics) != 2 {
		t.Errorf("want both conflicts reported, got %v", planErr.Diagnostics)
	}

	artifact := filepath.Join(opts.ProjectDir, "build", ArtifactName(opts.Namespace, opts.Name, opts.Version))
	if _, statErr := os.Stat(artifact); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("artifact must not be written on conflict, stat err = %v", statErr)
	}
}

func TestBuild_DuplicateOverwriteIsDegraded(t *testing.T) {
	t.Parallel()

	opts := newProject(t)
	mustWrite(t, filepath.Join(opts.ProjectDir, "a.txt"), "first")
	mustWrite(t, filepath.Join(opts.ProjectDir, "b.txt"), "second")
	opts.CopyPaths = []CopyPath{
		{Source: "a.txt", Target: "out.txt"},
		{Source: "b.txt", Target: "out.txt"},
	}

	result, err := NewBuilder(opts).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if result.Status() != StatusDegraded {
		t.Errorf("Status() = %v, want StatusDegraded", result.Status())
	}
	if files := readZip(t, result.Path); files["out.txt"] != "second" {
		t.Errorf("out.txt = %q, want the later source", files["out.txt"])
	}
}

func TestBuild_InvalidTargetPathIsFatal(t *testing.T) {
	t.Parallel()

	opts := newProject(t)
	mustWrite(t, filepath.Join(opts.ProjectDir, "a.txt"), "x")
	opts.CopyPaths = []CopyPath{{Source: "a.txt", Target: "bad:name.txt"}}

	_, err := NewBuilder(opts).Build()
	if !errors.Is(err, ErrPlanConflict) {
		t.Fatalf("expected plan error for invalid target, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad:name.txt") {
		t.Errorf("error should name the invalid path: %v", err)
	}
}

func TestBuild_Preconditions(t *testing.T) {
	t.Parallel()

	t.Run("bad version", func(t *testing.T) {
		t.Parallel()
		opts := newProject(t)
		opts.Version = "1.0"
		_, err := NewBuilder(opts).Build()
		if !errors.Is(err, ErrInvalidVersion) {
			t.Fatalf("want ErrInvalidVersion, got %v", err)
		}
	})

	t.Run("missing icon", func(t *testing.T) {
		t.Parallel()
		opts := newProject(t)
		opts.IconPath = "nope.png"
		_, err := NewBuilder(opts).Build()
		var missing *MissingFileError
		if !errors.As(err, &missing) || missing.Role != "icon" {
			t.Fatalf("want icon MissingFileError, got %v", err)
		}
	})

	t.Run("missing readme", func(t *testing.T) {
		t.Parallel()
		opts := newProject(t)
		opts.ReadmePath = "docs/README.md"
		_, err := NewBuilder(opts).Build()
		if !errors.Is(err, ErrMissingFile) {
			t.Fatalf("want ErrMissingFile, got %v", err)
		}
	})
}

func TestBuild_IsReproducible(t *testing.T) {
	t.Parallel()

	opts := newProject(t)
	mustWrite(t, filepath.Join(opts.ProjectDir, "dist", "z.txt"), "z")
	mustWrite(t, filepath.Join(opts.ProjectDir, "dist", "m", "y.txt"), "y")
	opts.CopyPaths = []CopyPath{{Source: "dist", Target: "files"}}

	first, err := NewBuilder(opts).Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	firstBytes, err := os.ReadFile(first.Path)
	if err != nil {
		t.Fatal(err)
	}

	second, err := NewBuilder(opts).Build()
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	secondBytes, err := os.ReadFile(second.Path)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(firstBytes, secondBytes) {
		t.Error("two builds of the same inputs should be byte-identical")
	}
}

func TestBuild_EntryMode(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions are not recorded on windows")
	}

	opts := newProject(t)
	result, err := NewBuilder(opts).Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	zr, err := zip.OpenReader(result.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = zr.Close() }()
	for _, f := range zr.File {
		if got := f.Mode().Perm(); got != 0o664 {
			t.Errorf("%s mode = %v, want -rw-rw-r--", f.Name, got)
		}
		if f.Method != zip.Deflate {
			t.Errorf("%s method = %d, want deflate", f.Name, f.Method)
		}
	}
}
