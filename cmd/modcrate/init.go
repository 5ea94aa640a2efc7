// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/modcrate/modcrate/internal/config"
	"github.com/modcrate/modcrate/internal/issue"
)

const (
	// iconSize is the edge length repositories require for package icons.
	iconSize = 256

	defaultNamespace = "ExampleTeam"
	defaultName      = "ExampleMod"
)

// errProjectExists is returned by init when the project file already exists.
var errProjectExists = errors.New("project file already exists")

// initParams bundles the inputs of runInit.
type initParams struct {
	stdout    io.Writer
	path      string // project file to write
	namespace string
	name      string
	overwrite bool
}

func newInitCommand(flags *rootFlags) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new modcrate project",
		Long: `Create a new modcrate project next to the --config-path file.

Writes modcrate.toml with default settings, a placeholder 256x256 icon.png
and a README.md. Existing icon and readme files are kept unless
--overwrite is given.`,
		Example: `  # Scaffold a project in the current directory
  modcrate init --package-namespace MyTeam --package-name MyMod

  # Start over
  modcrate init --overwrite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			p := initParams{
				stdout:    cmd.OutOrStdout(),
				path:      flags.configPath,
				namespace: flags.namespace,
				name:      flags.name,
				overwrite: overwrite,
			}
			if err := runInit(p); err != nil {
				return reportError(cmd.ErrOrStderr(), err, flags.verbose)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing project files")

	return cmd
}

// runInit writes the project scaffold.
func runInit(p initParams) error {
	if p.namespace == "" {
		p.namespace = defaultNamespace
	}
	if p.name == "" {
		p.name = defaultName
	}

	if _, err := os.Stat(p.path); err == nil && !p.overwrite {
		return issue.NewErrorContext().
			WithOperation("create project").
			WithResource(p.path).
			WithSuggestion("Pass --overwrite to replace it").
			Wrap(errProjectExists).
			BuildError()
	}

	cfg := config.ProjectTemplate(p.namespace, p.name)
	data, err := config.MarshalProject(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating project directory: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", p.path, err)
	}
	created := []string{p.path}

	icon, err := placeholderIcon()
	if err != nil {
		return err
	}
	readme := fmt.Sprintf("# %s\n\n%s\n", p.name, cfg.Package.Description)

	scaffold := []struct {
		rel  string
		data []byte
	}{
		{cfg.Build.Icon, icon},
		{cfg.Build.Readme, []byte(readme)},
	}
	for _, f := range scaffold {
		path := filepath.Join(dir, filepath.FromSlash(f.rel))
		wrote, err := writeScaffoldFile(path, f.data, p.overwrite)
		if err != nil {
			return err
		}
		if wrote {
			created = append(created, path)
		}
	}

	for _, cp := range cfg.Build.Copy {
		if err := os.MkdirAll(filepath.Join(dir, filepath.FromSlash(cp.Source)), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", cp.Source, err)
		}
	}

	for _, path := range created {
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			abs = path
		}
		fmt.Fprintf(p.stdout, "%s Created %s\n", successIcon, abs)
	}
	fmt.Fprintln(p.stdout)
	fmt.Fprintln(p.stdout, SubtitleStyle.Render("Next steps:"))
	fmt.Fprintln(p.stdout, "  1. Edit modcrate.toml and README.md")
	fmt.Fprintln(p.stdout, "  2. Put the mod files in the copy source directory")
	fmt.Fprintf(p.stdout, "  3. Run %s\n", CmdStyle.Render("modcrate build"))

	return nil
}

// writeScaffoldFile writes data unless path exists and overwrite is false.
func writeScaffoldFile(path string, data []byte, overwrite bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return false, nil
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

// placeholderIcon renders a solid icon in the primary palette color.
func placeholderIcon() ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	fill := color.NRGBA{R: 0x7C, G: 0x3A, B: 0xED, A: 0xFF}
	for y := range iconSize {
		for x := range iconSize {
			img.SetNRGBA(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding icon: %w", err)
	}
	return buf.Bytes(), nil
}
