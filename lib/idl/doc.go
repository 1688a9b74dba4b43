// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package idl describes the type contracts that backend services
// publish and checks wire values against them.
//
// A contract is built from a small set of primitives: null, bool,
// nat (unbounded non-negative integer), int (unbounded signed
// integer), text, blob, principal, opt, vec, record and variant. Two
// extra numeric kinds, nat-as-text and int-as-text, describe services
// that ship integers as decimal strings; on the wire they are plain
// text, and they decode to the same *big.Int as nat and int.
//
// Wire values arrive as loose CBOR trees (see codec.DecodeTree).
// Decode checks a tree against a Type and converts it into the
// canonical Go representation:
//
//	null      -> nil
//	bool      -> bool
//	nat, int  -> *big.Int (never truncated or wrapped)
//	text      -> string
//	blob      -> []byte
//	principal -> principal.Principal
//	opt       -> Optional
//	vec       -> []any
//	record    -> Record
//	variant   -> VariantValue
//
// Encode performs the reverse conversion for call arguments, and
// Equal compares two canonical values field by field.
//
// Result types built with Result accept both "ok"/"Ok" and
// "err"/"Err" tags: services disagree on the casing and the
// difference carries no meaning.
package idl
