// SPDX-License-Identifier: MPL-2.0

// Package config resolves modcrate configuration.
//
// A project is described by modcrate.toml next to its sources. Per-user
// settings such as the repository token live in config.toml under the
// platform configuration directory ($XDG_CONFIG_HOME/modcrate on Linux) and
// may be overridden through MODCRATE_* environment variables. Layers are
// merged explicitly, highest precedence first: command-line flags,
// environment, project file, user file, built-in defaults.
package config
