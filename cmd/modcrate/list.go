// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modcrate/modcrate/internal/repository"
)

type listParams struct {
	stdout    io.Writer
	client    *repository.Client
	community string
	search    string
}

func newListCommand(flags *rootFlags) *cobra.Command {
	var community, search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List packages published to the repository",
		Long: `List packages published to the repository, optionally scoped to one
community. Each package shows its newest version by semantic version.`,
		Example: `  modcrate list --community riskofrain2
  modcrate list --community valheim --search jotunn`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			stderr := cmd.ErrOrStderr()
			client, err := flags.readClient(cmd.Context(), stderr)
			if err != nil {
				return reportError(stderr, err, flags.verbose)
			}

			p := listParams{
				stdout:    cmd.OutOrStdout(),
				client:    client,
				community: community,
				search:    search,
			}
			if err := runList(cmd.Context(), p); err != nil {
				return reportError(stderr, err, flags.verbose)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&community, "community", "", "only list packages of this community")
	cmd.Flags().StringVar(&search, "search", "", "only list packages whose name or description contains this text")

	return cmd
}

func runList(ctx context.Context, p listParams) error {
	pkgs, err := p.client.ListPackages(ctx, p.community)
	if err != nil {
		return describeError("list packages", err)
	}

	needle := strings.ToLower(p.search)
	shown := 0
	for _, pkg := range pkgs {
		if needle != "" && !matchesSearch(pkg, needle) {
			continue
		}
		shown++

		latest := "-"
		if len(pkg.Versions) > 0 {
			latest = pkg.Versions[0].VersionNumber
		}
		line := fmt.Sprintf("%s %s", TitleStyle.Render(pkg.FullName), latest)
		if pkg.IsDeprecated {
			line += " " + WarningStyle.Render("(deprecated)")
		}
		fmt.Fprintln(p.stdout, line)
		if len(pkg.Versions) > 0 && pkg.Versions[0].Description != "" {
			fmt.Fprintf(p.stdout, "  %s\n", SubtitleStyle.Render(pkg.Versions[0].Description))
		}
	}

	fmt.Fprintln(p.stdout)
	fmt.Fprintln(p.stdout, VerboseStyle.Render(fmt.Sprintf("%d of %d package(s)", shown, len(pkgs))))
	return nil
}

func matchesSearch(pkg repository.ListedPackage, needle string) bool {
	if strings.Contains(strings.ToLower(pkg.FullName), needle) {
		return true
	}
	for _, v := range pkg.Versions {
		if strings.Contains(strings.ToLower(v.Description), needle) {
			return true
		}
	}
	return false
}
