// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework of the actorlink binary: a
// tree of [Command] values dispatched by name, pflag flag sets parsed
// per command, typo suggestions for unknown commands and flags, the
// shared --json output switch and the command logger.
package cli
