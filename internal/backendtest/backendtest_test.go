// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backendtest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/bureau-foundation/actorlink/lib/codec"
	"github.com/bureau-foundation/actorlink/lib/service"
)

func newDispatcher(t *testing.T) *service.Dispatcher {
	t.Helper()
	dispatcher := service.NewDispatcher(service.AuthConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	dispatcher.Handle("aaaaa-aa", "ping", func(ctx context.Context, call *service.Call) (any, error) {
		return "pong", nil
	})
	return dispatcher
}

func TestCallDispatches(t *testing.T) {
	transport := New(newDispatcher(t))
	args, _ := codec.Marshal([]any{})

	data, err := transport.Call(context.Background(), &service.Request{CanisterID: "aaaaa-aa", Method: "ping", Args: args})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	var reply string
	if err := codec.Unmarshal(data, &reply); err != nil || reply != "pong" {
		t.Fatalf("reply = %q (%v), want pong", reply, err)
	}
	if transport.CallCount("ping") != 1 {
		t.Errorf("CallCount = %d, want 1", transport.CallCount("ping"))
	}
}

func TestCallRejection(t *testing.T) {
	transport := New(newDispatcher(t))
	_, err := transport.Call(context.Background(), &service.Request{CanisterID: "aaaaa-aa", Method: "missing"})
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code != service.CodeUnknownMethod {
		t.Fatalf("error = %v, want unknown_method ServiceError", err)
	}
}

func TestFailAndHeal(t *testing.T) {
	transport := New(newDispatcher(t))
	injected := errors.New("connection reset")
	args, _ := codec.Marshal([]any{})
	request := &service.Request{CanisterID: "aaaaa-aa", Method: "ping", Args: args}

	transport.Fail("", "ping", injected)
	if _, err := transport.Call(context.Background(), request); !errors.Is(err, injected) {
		t.Fatalf("error = %v, want injected failure", err)
	}

	transport.Heal("", "ping")
	if _, err := transport.Call(context.Background(), request); err != nil {
		t.Fatalf("Call after Heal: %v", err)
	}
	if len(transport.Calls()) != 2 {
		t.Errorf("Calls = %d, want 2", len(transport.Calls()))
	}
}

func TestCallHonorsCancellation(t *testing.T) {
	transport := New(newDispatcher(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := transport.Call(ctx, &service.Request{CanisterID: "aaaaa-aa", Method: "ping"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
