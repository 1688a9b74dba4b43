// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calltoken

import (
	"sync"
	"time"
)

// ReplayGuard is a thread-safe in-memory set of nonces seen within
// their tokens' lifetimes. Entries are kept until the token's natural
// expiry: after that Verify rejects the token anyway, so Cleanup can
// drop them and the set stays proportional to the call rate times the
// token TTL.
type ReplayGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewReplayGuard creates an empty replay guard.
func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{entries: make(map[string]time.Time)}
}

// Check records the token's nonce and returns ErrReplayed if it was
// already recorded.
func (g *ReplayGuard) Check(token *Token) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, seen := g.entries[token.Nonce]; seen {
		return ErrReplayed
	}
	g.entries[token.Nonce] = time.Unix(token.ExpiresAt, 0)
	return nil
}

// Cleanup removes nonces whose token has expired at now and returns
// how many were removed.
func (g *ReplayGuard) Cleanup(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for nonce, expiresAt := range g.entries {
		if !now.Before(expiresAt) {
			delete(g.entries, nonce)
			removed++
		}
	}
	return removed
}

// Len returns the number of recorded nonces.
func (g *ReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
