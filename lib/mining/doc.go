// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mining is the client of the DIRT mining service: its
// contract, the decode variants that absorb the numeric drift between
// deployments, the user dashboard plan, and the miner management
// operations.
//
// Deployments of the mining service disagree on how counters travel:
// the published contract says nat, older builds answer int, and some
// gateways render numbers as decimal text. [NewVariants] builds one
// variant list per drifting method in a configurable order (nat, int,
// text by default) and [Descriptor] installs them, so every reply is
// decoded by the first encoding that fits and values are always
// *big.Int regardless of the wire encoding.
//
// [BuildDashboard] assembles miners, stats, round information, winning
// statistics and recent wins from independent calls, falling back to
// the combined getUserDashboard reply where one exists and otherwise
// to zero values marked unavailable.
//
// Mutating operations return a *MinerError carrying the service's
// error tag and payload unchanged.
package mining
