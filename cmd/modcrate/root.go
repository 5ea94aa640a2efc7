// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/modcrate/modcrate/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags holds the persistent flags every subcommand reads.
type rootFlags struct {
	configPath string
	verbose    bool
	repository string
	token      string
	namespace  string
	name       string
	version    string

	provider config.Provider
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{provider: config.NewProvider()}

	cmd := &cobra.Command{
		Use:   "modcrate",
		Short: "Build and publish mod packages",
		Long: TitleStyle.Render("modcrate") + SubtitleStyle.Render(" - Build and publish mod packages") + `

modcrate packs a mod project into a reproducible zip artifact and
publishes it to a package repository through a resumable, chunked
upload.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Create a project with: modcrate init
  2. Edit modcrate.toml and README.md
  3. Build the artifact with: modcrate build
  4. Publish it with: MODCRATE_TOKEN=... modcrate publish

` + SubtitleStyle.Render("Examples:") + `
  modcrate build                       Build ./build/<ns>-<name>-<version>.zip
  modcrate publish --check-version     Refuse versions that are not newer
  modcrate info MyTeam/MyMod           Show published package metadata
  modcrate list --community valheim    List packages of a community`,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config-path", "./"+config.ProjectFileName, "project file to read")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&flags.repository, "repository", "", "repository base URL (overrides publish.repository)")
	pf.StringVar(&flags.token, "token", "", "repository service account token")
	pf.StringVar(&flags.namespace, "package-namespace", "", "override package.namespace")
	pf.StringVar(&flags.name, "package-name", "", "override package.name")
	pf.StringVar(&flags.version, "package-version", "", "override package.version_number")

	cmd.AddCommand(
		newInitCommand(flags),
		newBuildCommand(flags),
		newPublishCommand(flags),
		newInfoCommand(flags),
		newListCommand(flags),
	)

	return cmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the command tree and exits with the code the command chose.
// This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// handleError skips failures a command has already rendered.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// overrides returns the configuration layer contributed by flags.
func (f *rootFlags) overrides() config.Overrides {
	return config.Overrides{
		Repository: f.repository,
		Token:      f.token,
		Namespace:  f.namespace,
		Name:       f.name,
		Version:    f.version,
	}
}

// loadConfig resolves every configuration layer for a command.
func (f *rootFlags) loadConfig(ctx context.Context, requireProject bool, ov config.Overrides) (*config.Config, error) {
	cfg, err := f.provider.Load(ctx, config.LoadOptions{
		ProjectFilePath: f.configPath,
		RequireProject:  requireProject,
		Overrides:       ov,
	})
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// newLogger creates the process logger. Verbose mode enables debug records.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}
