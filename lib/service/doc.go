// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service carries remote calls between actor handles and
// backend services.
//
// Every call is one CBOR request envelope answered by one CBOR
// response envelope:
//
//	Request  {canister_id, method, query, args, token}
//	Response {ok, error, code, data}
//
// args is the CBOR array of encoded arguments and data is the raw
// CBOR reply payload. The transport never interprets either: the
// caller decodes data with the tolerant decoder once it knows which
// contracts to try.
//
// Two transports implement the same envelope exchange:
//
//   - Unix socket ("unix:/run/actorlink/backend.sock"): one request per
//     connection, like every other local socket protocol in this
//     repository. [SocketClient] and [SocketServer].
//   - HTTP ("http://host:port"): POST to
//     /api/v2/canister/<id>/query or /api/v2/canister/<id>/call.
//     Responses may be compressed with zstd, gzip or lz4 according to
//     Accept-Encoding. [HTTPClient] and [NewHTTPHandler].
//
// [Router] picks a client per endpoint and is what actor factories
// use as their transport.
//
// On the serving side, a [Dispatcher] routes requests to per-method
// handlers by canister id and method name. Methods registered with
// HandleAuth require a call token; Handle accepts anonymous calls and
// still verifies a token when one is present. Verification binds the
// token to the canister, the method and the exact argument bytes.
package service
