// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for actorlink
// binaries.
//
// Configuration is loaded from a single file specified by either the
// ACTORLINK_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config
// discovery, and no automatic file search.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches.
//
// Variable expansion is performed on paths and endpoints after
// loading: ${HOME} and ${VAR:-default} patterns are expanded. No
// other environment variables override config values.
//
// Canister ids may be listed per service or read from a JSONC
// canister ids file keyed by service and network; see
// [Config.ResolveServices].
//
// This package depends on no other actorlink packages.
package config
