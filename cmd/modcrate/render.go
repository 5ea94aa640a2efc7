// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"golang.org/x/term"

	"github.com/modcrate/modcrate/internal/config"
	"github.com/modcrate/modcrate/internal/issue"
	"github.com/modcrate/modcrate/internal/repository"
	"github.com/modcrate/modcrate/internal/retry"
	"github.com/modcrate/modcrate/internal/upload"
	"github.com/modcrate/modcrate/pkg/archive"
	"github.com/modcrate/modcrate/pkg/types"
)

// describeError attaches an operation and, where one applies, a catalogued
// help page to an error from the build or publish pipeline. Errors that
// already carry context are returned unchanged.
func describeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	ec := issue.NewErrorContext().WithOperation(op).Wrap(err)

	var (
		validationErr *config.ValidationError
		versionErr    *archive.InvalidVersionError
		missingErr    *archive.MissingFileError
		planErr       *archive.PlanError
		conflictErr   *upload.VersionConflictError
		chunkErr      *upload.ChunkError
		statusErr     *repository.StatusError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &versionErr):
		ec.WithIssue(issue.InvalidConfigID)
	case errors.As(err, &missingErr):
		ec.WithIssue(issue.MissingBuildFileID).
			WithSuggestion(fmt.Sprintf("Check build.%s in %s", missingErr.Role, config.ProjectFileName))
	case errors.As(err, &planErr):
		ec.WithIssue(issue.PlanConflictID)
	case errors.As(err, &conflictErr):
		ec.WithIssue(issue.VersionAlreadyPublishedID).
			WithSuggestion("Bump package.version_number and build again")
	case errors.As(err, &chunkErr):
		ec.WithResource(fmt.Sprintf("part %d", chunkErr.PartNumber)).
			WithIssue(issue.UploadFailedID)
	case errors.As(err, &statusErr) &&
		(statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden):
		ec.WithIssue(issue.AuthenticationFailedID).
			WithSuggestion("Pass a valid token with --token or MODCRATE_TOKEN")
	case retry.IsTransient(err):
		ec.WithIssue(issue.RepositoryUnavailableID).
			WithSuggestion("Check your connection and try again")
	}

	return ec.BuildError()
}

// reportError prints err and, in verbose mode, the linked help page, then
// returns the ExitError the command should return.
func reportError(stderr io.Writer, err error, verbose bool) error {
	fmt.Fprintf(stderr, "%s %s\n", errorIcon, formatErrorForDisplay(err, verbose))

	if verbose {
		if page := issue.IssueOf(err); page != nil {
			rendered, renderErr := page.Render(glamourStyle(stderr))
			if renderErr != nil {
				fmt.Fprintf(stderr, "%s could not render help page: %v\n", warningIcon, renderErr)
			} else {
				fmt.Fprint(stderr, rendered)
			}
		}
	}

	return &ExitError{Code: types.ExitFailure}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// glamourStyle picks a colored style for terminals and a plain one otherwise.
func glamourStyle(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "dark"
	}
	return "notty"
}
