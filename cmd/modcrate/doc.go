// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for modcrate.
//
// This package implements the Cobra command hierarchy: project scaffolding
// (init), artifact builds (build), the publish protocol (publish) and
// read-only repository lookups (info, list). Commands resolve configuration
// through internal/config, render their own diagnostics and signal the
// process exit code with ExitError.
package cmd
