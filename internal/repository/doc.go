// SPDX-License-Identifier: MPL-2.0

// Package repository is a client for the package repository HTTP API.
//
// It covers the media upload session endpoints (initiate, finish, abort),
// package submission and the read-only package lookups. Chunk PUTs go to
// server-issued URLs and live in the upload package.
package repository
