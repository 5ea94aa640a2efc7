// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Catalogued issues.
const (
	ProjectNotFoundID ID = iota + 1
	ProjectParseFailedID
	InvalidConfigID
	MissingBuildFileID
	PlanConflictID
	AuthenticationFailedID
	UploadFailedID
	RepositoryUnavailableID
	VersionAlreadyPublishedID
)

type (
	// ID identifies a catalogued issue.
	ID int

	// MarkdownMsg is the Markdown body of a help page.
	MarkdownMsg string

	// HTTPLink is an absolute documentation URL.
	HTTPLink string

	// Issue is a help page shown for a class of failures.
	Issue struct {
		id       ID
		mdMsg    MarkdownMsg
		docLinks []HTTPLink
	}
)

// ID returns the issue identifier.
func (i *Issue) ID() ID {
	return i.id
}

// MarkdownMsg returns the raw Markdown body.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// DocLinks returns a copy of the documentation links.
func (i *Issue) DocLinks() []HTTPLink {
	return slices.Clone(i.docLinks)
}

// Render renders the page with the given glamour style ("dark", "light",
// "notty", or a JSON style path).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	projectNotFoundIssue = &Issue{
		id: ProjectNotFoundID,
		mdMsg: `
# No project file found!

modcrate reads the package description from **modcrate.toml**.

## Things you can try:
- Create a project in the current directory:
~~~
$ modcrate init
~~~

- Or point at an existing file:
~~~
$ modcrate build --config-path path/to/modcrate.toml
~~~`,
	}

	projectParseFailedIssue = &Issue{
		id: ProjectParseFailedID,
		mdMsg: `
# The project file could not be read!

modcrate.toml must be valid TOML and may only use known keys.

## Things you can try:
- Check the line and column reported above
- Look for misspelled keys: unknown keys are rejected
- Keep secrets such as the repository token out of the project file;
  use MODCRATE_TOKEN or --token instead`,
	}

	invalidConfigIssue = &Issue{
		id: InvalidConfigID,
		mdMsg: `
# The configuration is invalid!

## Rules:
- namespace and name may only contain letters, digits and underscores
- version_number must be MAJOR.MINOR.PATCH, for example 1.0.0
- dependencies are written as "Namespace-Name" = "1.2.3"

## Example:
~~~toml
[package]
namespace = "MyTeam"
name = "MyMod"
version_number = "1.0.0"

[package.dependencies]
"BepInEx-BepInExPack" = "5.4.2100"
~~~`,
	}

	missingBuildFileIssue = &Issue{
		id: MissingBuildFileID,
		mdMsg: `
# A required build file is missing!

Every package contains an icon and a readme.

## Things you can try:
- Check build.icon and build.readme in modcrate.toml
- Paths are relative to the directory holding modcrate.toml
- Run 'modcrate init' in a scratch directory to get placeholder files`,
	}

	planConflictIssue = &Issue{
		id: PlanConflictID,
		mdMsg: `
# Conflicting archive paths!

Two entries would land on the same archive path, or one entry would
be both a file and a directory. Nothing was written.

## Things you can try:
- Paths that differ only in letter case are the same path on Windows;
  rename one of them
- Make sure no [[build.copy]] target is a file inside another target`,
	}

	authenticationFailedIssue = &Issue{
		id: AuthenticationFailedID,
		mdMsg: `
# The repository rejected the token!

## Things you can try:
- Create a service account token for your team on the repository website
- Pass it with --token or export MODCRATE_TOKEN
- Check that the token belongs to the package namespace`,
	}

	uploadFailedIssue = &Issue{
		id: UploadFailedID,
		mdMsg: `
# The upload failed!

The upload session was aborted; nothing was published.

## Things you can try:
- Run the command again; uploads always start a new session
- Lower --concurrency on slow or unstable connections
- Run with --verbose to see which part failed`,
	}

	repositoryUnavailableIssue = &Issue{
		id: RepositoryUnavailableID,
		mdMsg: `
# The repository could not be reached!

## Things you can try:
- Check your network connection
- Check the repository URL (--repository or publish.repository)
- Try again later if the service reports an outage`,
	}

	versionAlreadyPublishedIssue = &Issue{
		id: VersionAlreadyPublishedID,
		mdMsg: `
# This version is already published!

Published versions are immutable.

## Things you can try:
- Bump package.version_number in modcrate.toml
- Or pass --package-version for a one-off release`,
	}

	issues = map[ID]*Issue{
		projectNotFoundIssue.ID():         projectNotFoundIssue,
		projectParseFailedIssue.ID():      projectParseFailedIssue,
		invalidConfigIssue.ID():           invalidConfigIssue,
		missingBuildFileIssue.ID():        missingBuildFileIssue,
		planConflictIssue.ID():            planConflictIssue,
		authenticationFailedIssue.ID():    authenticationFailedIssue,
		uploadFailedIssue.ID():            uploadFailedIssue,
		repositoryUnavailableIssue.ID():   repositoryUnavailableIssue,
		versionAlreadyPublishedIssue.ID(): versionAlreadyPublishedIssue,
	}
)

// Values returns every catalogued issue ordered by ID.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

// Get returns the issue with the given ID, or nil.
func Get(id ID) *Issue {
	return issues[id]
}
