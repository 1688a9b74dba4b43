// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which build of actorlink is running. The
// CLI and the mock backend print it for --version, the mock logs it at
// startup, and the HTTP transport sends it as the User-Agent so a
// backend can tell client builds apart.
//
// The build identity lives in [GitCommit], [GitDirty], [BuildTime]
// and [Version], set with -ldflags -X. Unset builds report "unknown"
// and the development version.
package version
