// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides actorlink's standard CBOR encoding configuration.
//
// Every byte that crosses the transport boundary is CBOR: call
// arguments, reply payloads, the request/response envelopes of the
// socket and HTTP transports, and signed call tokens. This package
// holds the shared encoding and decoding modes so that every package
// encodes identically without duplicating configuration. The encoder
// uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map keys,
// smallest integer encoding, no indefinite-length items.
//
// There are two decoding paths:
//
//	err = codec.Unmarshal(data, &value) // into a Go struct
//	tree, err := codec.DecodeTree(data) // into a loose value tree
//
// Unmarshal is for envelopes whose shape this module controls.
// DecodeTree is for reply payloads produced by independently
// versioned backends: it preserves the distinction between CBOR
// unsigned integers, negative integers and bignums so that the
// tolerant decoder can judge a value against several candidate type
// contracts without any lossy conversion having happened first.
//
// # Struct Tag Rules
//
//   - `cbor` tag: the type is only ever serialized as CBOR (envelopes,
//     call tokens).
//   - `json` tag: the type may be serialized as both JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as a fallback, so one tag
//     controls both formats (CLI --json output types).
//
// Never use both tags on the same field.
package codec
