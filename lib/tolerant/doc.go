// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tolerant decodes reply payloads from services whose wire
// schema drifts between deployments.
//
// A caller supplies an ordered list of candidate contracts (variants)
// for one reply. Decode tries them in order and returns the first
// that accepts the payload in full. Order is significant: list the
// narrowest contract first (nat before int, int before numeric text)
// so that a value satisfying several variants is reported under the
// most specific one.
//
// Nothing is ever coerced between variants. An integer accepted
// under an int variant keeps its sign; a payload that matches no
// variant produces a *NoMatchError listing every attempt, and never a
// partially decoded value.
package tolerant
