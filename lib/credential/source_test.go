// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"testing"
	"time"

	"github.com/bureau-foundation/actorlink/lib/testutil"
)

func TestMutableNotifiesSubscribers(t *testing.T) {
	source := NewMutable(Anonymous())
	first, cancelFirst := source.Subscribe()
	defer cancelFirst()
	second, cancelSecond := source.Subscribe()
	defer cancelSecond()

	user := testCredential(t, 1)
	source.Set(user)

	for _, channel := range []<-chan Credential{first, second} {
		got := testutil.RequireReceive(t, channel, 5*time.Second, "credential change")
		if got.Key() != user.Key() {
			t.Errorf("notification = %s, want %s", got.Key(), user.Key())
		}
	}
	if source.Current().Key() != user.Key() {
		t.Errorf("Current() = %s, want %s", source.Current().Key(), user.Key())
	}
}

func TestMutableKeepsLatestForSlowSubscriber(t *testing.T) {
	source := NewMutable(Anonymous())
	channel, cancel := source.Subscribe()
	defer cancel()

	source.Set(testCredential(t, 1))
	source.Set(testCredential(t, 2))
	last := testCredential(t, 3)
	source.Set(last)

	got := testutil.RequireReceive(t, channel, 5*time.Second, "latest credential")
	if got.Key() != last.Key() {
		t.Errorf("received %s, want latest %s", got.Key(), last.Key())
	}
	select {
	case extra := <-channel:
		t.Errorf("unexpected queued credential %s", extra.Key())
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	source := NewMutable(Anonymous())
	channel, cancel := source.Subscribe()
	cancel()
	cancel()

	testutil.RequireClosed(t, channel, 5*time.Second, "cancelled subscription")

	// Set after cancel must not panic on the closed channel.
	source.Set(testCredential(t, 1))
}

func TestStaticNeverNotifies(t *testing.T) {
	user := testCredential(t, 4)
	source := Static(user)
	channel, cancel := source.Subscribe()
	defer cancel()

	if source.Current().Key() != user.Key() {
		t.Errorf("Current() = %s, want %s", source.Current().Key(), user.Key())
	}
	select {
	case c := <-channel:
		t.Errorf("static source delivered %s", c.Key())
	default:
	}
}
