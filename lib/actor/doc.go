// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package actor creates typed remote-call handles for backend
// services.
//
// A [ServiceDescriptor] names one backend: where it lives (endpoint
// and canister id) and what it speaks (an [idl.Service] contract plus
// optional per-method lists of tolerant decode variants). Descriptors
// are collected in a [Registry] at start-up.
//
// [Factory.Bind] turns a descriptor and a caller credential into a
// [Handle]. Binding performs no I/O: it rejects placeholder endpoints
// with a *ConfigurationError and malformed contracts with a
// *DescriptorError, and otherwise returns immediately. Each call
// through the handle encodes its arguments against the contract,
// mints a call token for the credential (anonymous handles send
// none), sends the request through the [Transport], and decodes the
// reply with the tolerant decoder.
//
// Handles are owned by a session store (lib/session), which closes
// them when the caller's identity changes. Calls started on a closed
// handle fail with [ErrHandleClosed].
package actor
