// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/modcrate/modcrate/internal/config"
	"github.com/modcrate/modcrate/internal/issue"
	"github.com/modcrate/modcrate/internal/repository"
	"github.com/modcrate/modcrate/internal/upload"
	"github.com/modcrate/modcrate/pkg/archive"
	"github.com/modcrate/modcrate/pkg/manifest"
	"github.com/modcrate/modcrate/pkg/types"
)

// maxManifestBytes bounds the manifest read from a prebuilt artifact.
const maxManifestBytes = 1 << 20

var (
	// errNoManifest is returned when a prebuilt artifact lacks manifest.json.
	errNoManifest = errors.New("artifact has no " + archive.ManifestEntry)
	// errDegradedBuild stops publish when the build recorded warnings.
	errDegradedBuild = errors.New("build finished with warnings, refusing to publish an incomplete artifact")
)

// publishParams bundles the inputs of runPublish so it can be tested
// without a Cobra command.
type publishParams struct {
	stdout       io.Writer
	stderr       io.Writer
	cfg          *config.Config
	logger       *log.Logger
	file         string
	checkVersion bool
	clientOpts   []repository.ClientOption
	publishOpts  []upload.PublisherOption
}

func newPublishCommand(flags *rootFlags) *cobra.Command {
	var (
		file         string
		checkVersion bool
		concurrency  int
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Build the artifact and publish it to the repository",
		Long: `Build the artifact and publish it to the repository.

The artifact is uploaded in parts over a resumable upload session, then
submitted to every community listed in publish.communities. If any part
fails the session is aborted and nothing is published. A build that records
warnings is not published and exits with status 2.

The repository token is read from --token or MODCRATE_TOKEN and is never
stored in modcrate.toml.`,
		Example: `  # Build and publish
  MODCRATE_TOKEN=tss_... modcrate publish

  # Publish a prebuilt artifact
  modcrate publish --file build/MyTeam-MyMod-1.0.0.zip --token tss_...

  # Refuse to publish a version that is not newer than the latest one
  modcrate publish --check-version`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			stderr := cmd.ErrOrStderr()
			ov := flags.overrides()
			ov.Concurrency = concurrency

			// A prebuilt artifact carries its own manifest, so the project
			// file is optional.
			cfg, err := flags.loadConfig(cmd.Context(), file == "", ov)
			if err != nil {
				return reportError(stderr, err, flags.verbose)
			}

			logger := newLogger(stderr, flags.verbose)
			p := publishParams{
				stdout:       cmd.OutOrStdout(),
				stderr:       stderr,
				cfg:          cfg,
				logger:       logger,
				file:         file,
				checkVersion: checkVersion,
				clientOpts: []repository.ClientOption{
					repository.WithUserAgent(config.AppName + "/" + Version),
					repository.WithLogger(logger),
				},
				publishOpts: []upload.PublisherOption{
					upload.WithReporter(upload.NewTerminalReporter(stderr, "Uploading parts")),
				},
			}
			if _, err := runPublish(cmd.Context(), p); err != nil {
				exitErr := reportError(stderr, err, flags.verbose)
				if errors.Is(err, errDegradedBuild) {
					return &ExitError{Code: types.ExitDegraded}
				}
				return exitErr
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "publish a prebuilt artifact instead of building")
	cmd.Flags().BoolVar(&checkVersion, "check-version", false, "fail when the version is not newer than the published one")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of parts uploaded at once (default 8)")

	return cmd
}

// runPublish builds the artifact unless p.file is set, runs the optional
// version pre-flight check, then uploads and submits the artifact.
func runPublish(ctx context.Context, p publishParams) (*upload.PublishResult, error) {
	artifact := p.file
	if artifact != "" {
		m, err := readArtifactManifest(artifact)
		if err != nil {
			return nil, describeError("read artifact", err)
		}
		p.cfg.Merge(&config.Config{Package: config.PackageSection{
			Namespace:     m.Namespace,
			Name:          m.Name,
			VersionNumber: m.VersionNumber,
		}}, config.MergeAlwaysOverride)
	}

	if err := p.cfg.ValidatePublish(); err != nil {
		return nil, describeError("validate project", err)
	}

	client, err := repository.NewClient(p.cfg.Publish.Repository,
		append([]repository.ClientOption{repository.WithToken(p.cfg.Publish.Token)}, p.clientOpts...)...)
	if err != nil {
		return nil, describeError("connect to repository", err)
	}

	pkg := p.cfg.Package
	if p.checkVersion {
		if err := upload.CheckVersion(ctx, client, pkg.Namespace, pkg.Name, pkg.VersionNumber); err != nil {
			return nil, describeError("check published version", err)
		}
	}

	if artifact == "" {
		res, err := runBuild(ctx, buildParams{
			stdout: p.stdout,
			stderr: p.stderr,
			cfg:    p.cfg,
			logger: p.logger,
		})
		if err != nil {
			return nil, err
		}
		if res.Status() == archive.StatusDegraded {
			return nil, issue.NewErrorContext().
				WithOperation("publish "+pkg.FullName()+"-"+pkg.VersionNumber).
				WithResource(res.Path).
				WithSuggestion("Fix the warnings above, or publish the artifact anyway with --file").
				Wrap(errDegradedBuild).
				BuildError()
		}
		artifact = res.Path
	}

	opts := append([]upload.PublisherOption{
		upload.WithConcurrency(p.cfg.Publish.Concurrency),
		upload.WithLogger(p.logger),
	}, p.publishOpts...)
	publisher := upload.NewPublisher(client, opts...)

	res, err := publisher.Publish(ctx, upload.PublishRequest{
		FilePath:            artifact,
		Namespace:           pkg.Namespace,
		Communities:         p.cfg.Publish.Communities,
		Categories:          p.cfg.Publish.Categories,
		CommunityCategories: p.cfg.Publish.CommunityCategories,
		HasNSFWContent:      pkg.NSFW(),
	})
	if err != nil {
		return nil, describeError("publish "+pkg.FullName()+"-"+pkg.VersionNumber, err)
	}

	fmt.Fprintf(p.stdout, "%s Published %s %s\n", successIcon, TitleStyle.Render(pkg.FullName()), pkg.VersionNumber)
	fmt.Fprintf(p.stdout, "  %s\n", CmdStyle.Render(res.DownloadURL))
	return res, nil
}

// readArtifactManifest extracts manifest.json from a built artifact.
func readArtifactManifest(path string) (m manifest.Manifest, err error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("opening artifact: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, f := range zr.File {
		if f.Name != archive.ManifestEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return manifest.Manifest{}, fmt.Errorf("opening %s: %w", archive.ManifestEntry, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxManifestBytes))
		_ = rc.Close() //nolint:errcheck // Read-only handle.
		if err != nil {
			return manifest.Manifest{}, fmt.Errorf("reading %s: %w", archive.ManifestEntry, err)
		}
		return manifest.Parse(data)
	}
	return manifest.Manifest{}, fmt.Errorf("%s: %w", path, errNoManifest)
}
