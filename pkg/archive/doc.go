// SPDX-License-Identifier: MPL-2.0

// Package archive plans and writes package artifacts.
//
// Building happens in two strictly sequential phases. Planning maps every
// archive-relative path to a Source and records conflicts as diagnostics
// without touching the output directory. Materialization then writes the
// planned entries, in insertion order, into a deflate-compressed zip file.
// A plan that recorded any error diagnostic is never materialized.
package archive
