// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import "sync"

// Source provides the current credential and announces changes.
type Source interface {
	// Current returns the credential in effect now.
	Current() Credential

	// Subscribe returns a channel that receives every credential
	// change after the call and a cancel function that stops delivery
	// and closes the channel. Delivery keeps only the latest
	// undelivered credential: a slow subscriber sees the newest
	// identity, never a stale queue.
	Subscribe() (<-chan Credential, func())
}

// Mutable is an in-process Source whose credential is replaced with
// Set (login, logout, identity switch).
type Mutable struct {
	mu          sync.Mutex
	current     Credential
	subscribers map[int]chan Credential
	nextID      int
}

// NewMutable returns a Mutable source starting at initial.
func NewMutable(initial Credential) *Mutable {
	return &Mutable{
		current:     initial,
		subscribers: make(map[int]chan Credential),
	}
}

// Static returns a Source that never changes.
func Static(c Credential) Source {
	return NewMutable(c)
}

func (m *Mutable) Current() Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set replaces the credential and notifies every subscriber. Setting
// an identity equal to the current one (same Key) still notifies.
func (m *Mutable) Set(c Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = c
	for _, channel := range m.subscribers {
		select {
		case channel <- c:
		default:
			// Replace the undelivered credential with the newer one.
			select {
			case <-channel:
			default:
			}
			channel <- c
		}
	}
}

func (m *Mutable) Subscribe() (<-chan Credential, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	channel := make(chan Credential, 1)
	m.subscribers[id] = channel

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subscribers, id)
			close(channel)
		})
	}
	return channel, cancel
}
