// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads liveplot's YAML configuration.
//
// Configuration comes from a single file named by the --config flag
// or the LIVEPLOT_CONFIG environment variable ([Resolve] checks them
// in that order). There is no discovery of files in home or system
// directories. Without either, liveplot runs on [Default] values and
// command-line flags alone.
//
// The file may carry development, staging and production sections
// that override base values when [Config].Environment matches. After
// loading, ${HOME} and ${VAR:-default} patterns in path fields are
// expanded. Command-line flags override everything the file sets.
//
// Sections:
//
//   - dashboard: bind address, grid columns, refresh interval, title
//   - subscribe: remote publisher address, compression, reconnect backoff
//   - dispatch: ignored streams, operator structures file
//   - logging: level and optional JSON log file
package config
