// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/zip"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// IconEntry is the archive path of the package icon.
	IconEntry = "icon.png"
	// ReadmeEntry is the archive path of the package readme.
	ReadmeEntry = "README.md"
	// ManifestEntry is the archive path of the package manifest.
	ManifestEntry = "manifest.json"

	// entryMode is recorded on every entry written on non-Windows hosts (rw-rw-r--).
	entryMode fs.FileMode = 0o664
)

const (
	// StatusOK means the artifact was written with no warnings.
	StatusOK BuildStatus = iota
	// StatusDegraded means the artifact was written but warnings or
	// planning issues were recorded.
	StatusDegraded
)

// entryTime is stamped on every entry so identical inputs produce identical artifacts.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type (
	// BuildStatus summarizes a successful build.
	BuildStatus int

	// CopyPath maps a project-relative source (file or directory) to an
	// archive destination prefix.
	CopyPath struct {
		Source string
		Target string
	}

	// BuildOptions configures a Builder. Relative paths are resolved
	// against ProjectDir.
	BuildOptions struct {
		ProjectDir string
		Namespace  string
		Name       string
		Version    string
		IconPath   string
		ReadmePath string
		OutputDir  string
		CopyPaths  []CopyPath
		// Manifest is the serialized manifest.json content.
		Manifest []byte
		Logger   *log.Logger
	}

	// BuildResult describes a written artifact.
	BuildResult struct {
		Path        string
		Entries     []string
		Diagnostics []Diagnostic
	}

	// Builder turns BuildOptions into an artifact on disk.
	Builder struct {
		opts   BuildOptions
		logger *log.Logger
	}
)

// Status returns StatusDegraded when any diagnostic was recorded.
func (r *BuildResult) Status() BuildStatus {
	if len(r.Diagnostics) > 0 {
		return StatusDegraded
	}
	return StatusOK
}

// ArtifactName returns the deterministic artifact file name for a package.
func ArtifactName(namespace, name, version string) string {
	return fmt.Sprintf("%s-%s-%s.zip", namespace, name, version)
}

// NewBuilder creates a Builder. A nil logger discards output.
func NewBuilder(opts BuildOptions) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Builder{opts: opts, logger: logger}
}

// Build validates the preconditions, plans every entry and writes the
// artifact. When planning records an error the returned error is a
// *PlanError and nothing is written.
func (b *Builder) Build() (*BuildResult, error) {
	if err := ValidateVersion(b.opts.Version); err != nil {
		return nil, err
	}

	iconPath := b.resolve(b.opts.IconPath)
	if !isRegularFile(iconPath) {
		return nil, &MissingFileError{Role: "icon", Path: iconPath}
	}
	readmePath := b.resolve(b.opts.ReadmePath)
	if !isRegularFile(readmePath) {
		return nil, &MissingFileError{Role: "readme", Path: readmePath}
	}

	outDir := b.resolve(b.opts.OutputDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	plan, err := b.Plan(iconPath, readmePath)
	if err != nil {
		return nil, err
	}
	if plan.HasErrors() {
		return nil, &PlanError{Diagnostics: plan.Errors()}
	}

	outPath := filepath.Join(outDir, ArtifactName(b.opts.Namespace, b.opts.Name, b.opts.Version))
	if err := writeArchive(outPath, plan.Entries()); err != nil {
		return nil, err
	}

	result := &BuildResult{
		Path:        outPath,
		Diagnostics: plan.Diagnostics(),
	}
	for _, e := range plan.Entries() {
		result.Entries = append(result.Entries, e.Path)
	}
	b.logger.Info("wrote artifact", "path", outPath, "entries", len(result.Entries))
	return result, nil
}

// Plan seeds a plan with the fixed entries and every copy path. Only I/O
// failures while enumerating sources are returned as errors; conflicts and
// missing sources are recorded on the plan.
func (b *Builder) Plan(iconPath, readmePath string) (*Plan, error) {
	plan := NewPlan(b.logger)
	plan.Add(IconEntry, FileSource(iconPath))
	plan.Add(ReadmeEntry, FileSource(readmePath))
	plan.Add(ManifestEntry, BytesSource(b.opts.Manifest))

	for _, cp := range b.opts.CopyPaths {
		if err := b.planCopy(plan, cp); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (b *Builder) planCopy(plan *Plan, cp CopyPath) error {
	src := b.resolve(cp.Source)
	info, err := os.Stat(src)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		plan.Warn(cp.Source, fmt.Sprintf("copy source %q does not exist; skipping", cp.Source))
		return nil
	case err != nil:
		return fmt.Errorf("inspecting copy source %s: %w", cp.Source, err)
	}

	if info.IsDir() {
		// WalkDir visits entries in lexical order, which keeps member order stable.
		return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			if !isRegularFile(path) {
				b.logger.Debug("skipping non-regular file", "path", path)
				return nil
			}
			rel, relErr := filepath.Rel(src, path)
			if relErr != nil {
				return fmt.Errorf("relative path for %s: %w", path, relErr)
			}
			b.addNormalized(plan, JoinTarget(cp.Target, filepath.ToSlash(rel)), FileSource(path))
			return nil
		})
	}

	if !info.Mode().IsRegular() {
		plan.Warn(cp.Source, fmt.Sprintf("copy source %q is neither a file nor a directory; skipping", cp.Source))
		return nil
	}

	dest := cp.Target
	if dest == "" || strings.HasSuffix(dest, "/") || strings.HasSuffix(dest, `\`) {
		dest += filepath.Base(src)
	}
	b.addNormalized(plan, dest, FileSource(src))
	return nil
}

func (b *Builder) addNormalized(plan *Plan, dest string, src Source) {
	normalized, err := NormalizePath(dest, true)
	if err != nil {
		plan.Fail(dest, err.Error())
		return
	}
	plan.Add(normalized, src)
}

func (b *Builder) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.opts.ProjectDir, p)
}

// writeArchive materializes entries into a new zip at outPath. A partially
// written file is removed on failure.
func writeArchive(outPath string, entries []Entry) (err error) {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating artifact: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing artifact: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(outPath) // best-effort cleanup of a partial artifact
		}
	}()

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for _, e := range entries {
		if err := writeEntry(zw, e); err != nil {
			_ = zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing artifact: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, e Entry) error {
	header := &zip.FileHeader{
		Name:     e.Path,
		Method:   zip.Deflate,
		Modified: entryTime,
	}
	if runtime.GOOS != "windows" {
		header.SetMode(entryMode)
	}

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", e.Path, err)
	}

	r, err := e.Source.Open()
	if err != nil {
		return fmt.Errorf("reading entry %s: %w", e.Path, err)
	}
	defer func() { _ = r.Close() }() // read-only handle

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("writing entry %s: %w", e.Path, err)
	}
	return nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
