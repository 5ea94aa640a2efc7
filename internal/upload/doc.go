// SPDX-License-Identifier: MPL-2.0

// Package upload drives the chunked publish protocol: it opens an upload
// session, sends every part of the artifact concurrently, then finishes the
// session and submits the package. A failed part aborts the session.
package upload
