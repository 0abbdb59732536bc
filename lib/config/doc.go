// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the fieldwire
// command.
//
// Configuration is loaded from a single file specified by either the
// FIELDWIRE_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config
// discovery, and no automatic file search. A command run with neither
// uses [Default].
//
// Variable expansion is performed on schema paths after loading:
// ${HOME}, ${FIELDWIRE_CONFIG_DIR} (the directory holding the config
// file), and ${VAR:-default} patterns are expanded. Relative schema
// paths are resolved against the config file's directory. No other
// environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Schemas, Decode, Output, Log
//   - [Default] -- returns a Config with the built-in defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [ValidationError] -- every problem [Config.Validate] found
//
// This package depends on no other fieldwire packages.
package config
