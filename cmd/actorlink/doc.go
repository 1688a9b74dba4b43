// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Actorlink is the command line client for the DIRT mining services.
// It reads a deployment config (see lib/config), binds actor handles
// for the configured identity and offers subcommands for the mining
// dashboard (dashboard), miner management (miner), the DIRT ledger
// and any other configured ICRC ledgers (token), sign-in address
// lookups (address) and identity files (identity).
package main
