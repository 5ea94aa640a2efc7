// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modcrate/modcrate/internal/config"
	"github.com/modcrate/modcrate/internal/issue"
	"github.com/modcrate/modcrate/internal/repository"
)

// errBadPackageRef is returned for a package argument that is not
// "namespace/name".
var errBadPackageRef = errors.New(`package must be written as "namespace/name"`)

type infoParams struct {
	stdout    io.Writer
	client    *repository.Client
	namespace string
	name      string
}

func newInfoCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info <namespace>/<name>",
		Short: "Show metadata of a published package",
		Example: `  modcrate info MyTeam/MyMod
  modcrate info MyTeam/MyMod --repository https://thunderstore.dev`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			stderr := cmd.ErrOrStderr()
			namespace, name, err := parsePackageRef(args[0])
			if err != nil {
				return reportError(stderr, err, flags.verbose)
			}
			client, err := flags.readClient(cmd.Context(), stderr)
			if err != nil {
				return reportError(stderr, err, flags.verbose)
			}

			p := infoParams{
				stdout:    cmd.OutOrStdout(),
				client:    client,
				namespace: namespace,
				name:      name,
			}
			if err := runInfo(cmd.Context(), p); err != nil {
				return reportError(stderr, err, flags.verbose)
			}
			return nil
		},
	}
}

func runInfo(ctx context.Context, p infoParams) error {
	pkg, err := p.client.GetPackage(ctx, p.namespace, p.name)
	if err != nil {
		return describeError("look up package", err)
	}

	w := p.stdout
	fmt.Fprintln(w, TitleStyle.Render(pkg.FullName))
	if pkg.Latest.Description != "" {
		fmt.Fprintln(w, SubtitleStyle.Render(pkg.Latest.Description))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Owner:       %s\n", pkg.Owner)
	fmt.Fprintf(w, "Latest:      %s\n", pkg.Latest.VersionNumber)
	fmt.Fprintf(w, "Downloads:   %d\n", pkg.TotalDownloads)
	fmt.Fprintf(w, "Rating:      %d\n", pkg.RatingScore)
	if pkg.IsDeprecated {
		fmt.Fprintf(w, "Status:      %s\n", WarningStyle.Render("deprecated"))
	}
	if len(pkg.Latest.Dependencies) > 0 {
		fmt.Fprintf(w, "Depends on:  %s\n", strings.Join(pkg.Latest.Dependencies, ", "))
	}
	for _, listing := range pkg.CommunityListings {
		line := listing.Community
		if len(listing.Categories) > 0 {
			line += " (" + strings.Join(listing.Categories, ", ") + ")"
		}
		fmt.Fprintf(w, "Community:   %s\n", line)
	}
	if pkg.Latest.DownloadURL != "" {
		fmt.Fprintf(w, "Download:    %s\n", CmdStyle.Render(pkg.Latest.DownloadURL))
	}
	return nil
}

// parsePackageRef splits "namespace/name".
func parsePackageRef(ref string) (namespace, name string, err error) {
	namespace, name, ok := strings.Cut(ref, "/")
	if !ok || namespace == "" || name == "" || strings.Contains(name, "/") {
		return "", "", issue.NewErrorContext().
			WithOperation("parse package").
			WithResource(ref).
			WithSuggestion("Example: modcrate info MyTeam/MyMod").
			Wrap(errBadPackageRef).
			BuildError()
	}
	return namespace, name, nil
}

// readClient builds a repository client for read-only commands. The project
// file is optional for them.
func (f *rootFlags) readClient(ctx context.Context, stderr io.Writer) (*repository.Client, error) {
	cfg, err := f.loadConfig(ctx, false, f.overrides())
	if err != nil {
		return nil, err
	}
	client, err := repository.NewClient(cfg.Publish.Repository,
		repository.WithToken(cfg.Publish.Token),
		repository.WithUserAgent(config.AppName+"/"+Version),
		repository.WithLogger(newLogger(stderr, f.verbose)),
	)
	if err != nil {
		return nil, describeError("connect to repository", err)
	}
	return client, nil
}
