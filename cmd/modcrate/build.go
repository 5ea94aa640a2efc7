// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/modcrate/modcrate/internal/config"
	"github.com/modcrate/modcrate/pkg/archive"
	"github.com/modcrate/modcrate/pkg/manifest"
	"github.com/modcrate/modcrate/pkg/types"
)

// buildParams bundles the inputs of runBuild so it can be tested without a
// Cobra command.
type buildParams struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	logger *log.Logger
}

func newBuildCommand(flags *rootFlags) *cobra.Command {
	var watchMode bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the package artifact",
		Long: `Build the package artifact described by modcrate.toml.

The artifact is written to <outdir>/<namespace>-<name>-<version>.zip and
always contains icon.png, README.md and manifest.json at its root, followed
by every [[build.copy]] entry.

Exit status is 0 for a clean build, 2 when the artifact was written with
warnings (such as a missing copy source) and 1 when nothing was written.`,
		Example: `  # Build with the project in the current directory
  modcrate build

  # Build a release candidate without editing the project file
  modcrate build --package-version 1.2.0

  # Rebuild whenever a project file changes
  modcrate build --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			stderr := cmd.ErrOrStderr()
			cfg, err := flags.loadConfig(cmd.Context(), true, flags.overrides())
			if err != nil {
				return reportError(stderr, err, flags.verbose)
			}

			p := buildParams{
				stdout: cmd.OutOrStdout(),
				stderr: stderr,
				cfg:    cfg,
				logger: newLogger(stderr, flags.verbose),
			}
			if watchMode {
				reload := func(ctx context.Context) (*config.Config, error) {
					return flags.loadConfig(ctx, true, flags.overrides())
				}
				if err := runWatch(cmd.Context(), p, reload); err != nil {
					return reportError(stderr, err, flags.verbose)
				}
				return nil
			}

			res, err := runBuild(cmd.Context(), p)
			if err != nil {
				return reportError(stderr, err, flags.verbose)
			}
			if res.Status() == archive.StatusDegraded {
				return &ExitError{Code: types.ExitDegraded}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "rebuild when project files change")

	return cmd
}

// runBuild validates the project, writes the artifact and prints a summary
// including any planning warnings.
func runBuild(ctx context.Context, p buildParams) (*archive.BuildResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build canceled: %w", err)
	}
	if err := p.cfg.ValidateBuild(); err != nil {
		return nil, describeError("validate project", err)
	}

	data, err := buildManifest(p.cfg)
	if err != nil {
		return nil, describeError("build manifest", err)
	}

	pkg := p.cfg.Package
	builder := archive.NewBuilder(archive.BuildOptions{
		ProjectDir: p.cfg.ProjectDir,
		Namespace:  pkg.Namespace,
		Name:       pkg.Name,
		Version:    pkg.VersionNumber,
		IconPath:   p.cfg.Build.Icon,
		ReadmePath: p.cfg.Build.Readme,
		OutputDir:  p.cfg.Build.OutDir,
		CopyPaths:  copyPaths(p.cfg.Build.Copy),
		Manifest:   data,
		Logger:     p.logger,
	})

	res, err := builder.Build()
	if err != nil {
		return nil, describeError("build "+pkg.FullName(), err)
	}

	printBuildResult(p.stdout, p.stderr, res)
	return res, nil
}

// buildManifest renders manifest.json for the project.
func buildManifest(cfg *config.Config) ([]byte, error) {
	installers := make([]string, 0, len(cfg.Install.Installers))
	for _, inst := range cfg.Install.Installers {
		installers = append(installers, inst.Identifier)
	}

	return manifest.New(manifest.Package{
		Namespace:    cfg.Package.Namespace,
		Name:         cfg.Package.Name,
		Description:  cfg.Package.Description,
		Version:      cfg.Package.VersionNumber,
		WebsiteURL:   cfg.Package.WebsiteURL,
		Dependencies: cfg.Package.Dependencies,
		Installers:   installers,
	}).Marshal()
}

func copyPaths(in []config.CopyPath) []archive.CopyPath {
	out := make([]archive.CopyPath, 0, len(in))
	for _, cp := range in {
		out = append(out, archive.CopyPath{Source: cp.Source, Target: cp.Target})
	}
	return out
}

func printBuildResult(stdout, stderr io.Writer, res *archive.BuildResult) {
	if len(res.Diagnostics) > 0 {
		fmt.Fprintf(stderr, "%s %d warning(s) while planning the archive:\n", warningIcon, len(res.Diagnostics))
		for i, d := range res.Diagnostics {
			fmt.Fprintf(stderr, "  %d. %s\n", i+1, WarningStyle.Render(d.String()))
		}
		fmt.Fprintln(stderr)
	}

	fmt.Fprintf(stdout, "%s Built %s (%d entries)\n", successIcon, CmdStyle.Render(res.Path), len(res.Entries))
}
