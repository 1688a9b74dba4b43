// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Call tokens carry issue and expiry timestamps, the session store
// records when each handle was bound, and the dashboard aggregator
// measures per-field latency. All of them read time through a Clock
// so that tests can pin it:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	factory := actor.NewFactory(actor.FactoryConfig{Clock: c, ...})
//	c.Advance(10 * time.Minute) // every token minted so far is now expired
//
// Nothing in this module sleeps or schedules timers, so the interface
// is limited to reading the current time.
package clock
