// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads ydocsync configuration from YAML.
//
// Configuration comes from a single file named by either the
// YDOCSYNC_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no file discovery and no fallback search.
//
// The file may carry development, staging and production sections
// that override base values when [Config].Environment matches. A
// production environment without its own section gets durable SQLite
// commits.
//
// After loading, ${HOME}, ${YDOCSYNC_DATA} and ${VAR:-default} patterns
// in the store path are expanded. No other environment variable
// overrides a configured value.
package config
