// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. Errors may point at a catalogued Issue whose Markdown
// help page is rendered with glamour in verbose output.
package issue
