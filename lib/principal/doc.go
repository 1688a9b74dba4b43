// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package principal implements the identifiers that name callers and
// services on the backend network.
//
// A principal is an opaque byte string of at most 29 bytes. Its
// textual form is the base32 encoding (lowercase, unpadded) of a
// big-endian CRC-32 checksum followed by the bytes, split into groups
// of five characters joined by dashes. Two principals are special:
//
//   - the anonymous principal (a single 0x04 byte, "2vxsx-fae") used
//     by callers that present no credential;
//   - the management principal (zero bytes, "aaaaa-aa") that
//     deployment files use as the "not configured yet" placeholder
//     for a service's canister id.
//
// Self-authenticating principals are derived from a caller's public
// key: SHA-224 of the DER-encoded key followed by the 0x02 suffix
// byte. Call tokens rely on this derivation so that a service can
// check a claimed sender against the key that signed the token.
package principal
