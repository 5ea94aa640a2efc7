// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared between the CLI layer and the
// library packages.
package types
