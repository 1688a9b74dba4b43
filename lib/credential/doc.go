// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential models the caller identity attached to remote
// calls and the source that announces when it changes.
//
// A Credential is either anonymous or backed by an Ed25519 key. Its
// Key is the textual principal ("2vxsx-fae" for anonymous), which is
// what session stores compare to decide whether a cached handle still
// belongs to the current caller.
//
// Identity seeds at rest are age-encrypted under a passphrase
// (scrypt recipient) and ASCII-armored, so an identity file is a
// plain text file that is useless without the passphrase.
package credential
