// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dashboard assembles a composite read model from several
// independent remote calls, degrading per field instead of failing as
// a whole.
//
// A [Plan] lists [Field]s. Each field has an ordered list of
// [Attempt]s (a primary and any number of fallbacks, each naming a
// service, method, argument builder and decode variant list) and a
// declared default. [Aggregator.Build] resolves every field: the
// first attempt that yields a value wins and the field records whether
// it came from the primary or a fallback; when every attempt fails the
// field takes its default and is marked unavailable, with the attempt
// errors kept alongside.
//
// Fields without dependencies run concurrently. A field that lists
// DependsOn waits for those fields and receives their resolved values
// when building arguments or converting its result. Build performs
// only reads and returns a [View] that is never modified afterwards.
package dashboard
