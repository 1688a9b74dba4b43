// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package calltoken implements the Ed25519-signed envelopes that
// carry a caller's identity on every authenticated remote call.
//
// A handle bound to a non-anonymous credential mints one token per
// call. The token names the sender principal, embeds the sender's
// public key, and binds the signature to one canister, one method and
// the exact argument bytes (by BLAKE3 digest), so a captured token
// cannot be replayed against a different method or with different
// arguments. Each token carries a random nonce; services that need
// replay protection within the token lifetime record nonces in a
// ReplayGuard.
//
// # Wire format
//
// A token is raw bytes: CBOR-encoded payload followed by a 64-byte
// Ed25519 signature over the payload bytes.
//
//	[CBOR payload bytes] [64-byte Ed25519 signature]
//
// The split point is always len(token) - 64. The verifying key is
// read from the payload itself; what makes that safe is that the
// sender principal must equal the self-authenticating principal of
// that key. A token therefore proves "the holder of the key behind
// principal P signed this call", and nothing about P's privileges.
// Authorization stays with the service.
package calltoken
