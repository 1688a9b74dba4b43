// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/actorlink/lib/calltoken"
	"github.com/bureau-foundation/actorlink/lib/clock"
	"github.com/bureau-foundation/actorlink/lib/codec"
	"github.com/bureau-foundation/actorlink/lib/principal"
	"github.com/bureau-foundation/actorlink/lib/testutil"
)

// testClockEpoch is the fixed time used by the fake clock in auth
// tests. Token timestamps are relative to this epoch.
var testClockEpoch = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

const testCanister = "ryjl3-tyaaa-aaaaa-aaaba-cai"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testSocketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(testutil.SocketDir(t), "backend.sock")
}

func testKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	return ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x42}, ed25519.SeedSize))
}

func encodeArgs(t *testing.T, args ...any) []byte {
	t.Helper()
	if args == nil {
		args = []any{}
	}
	data, err := codec.Marshal(args)
	if err != nil {
		t.Fatalf("encoding args: %v", err)
	}
	return data
}

// mintTestToken signs a token for one call, issued at the epoch with a
// five minute lifetime.
func mintTestToken(t *testing.T, key ed25519.PrivateKey, canister, method string, args []byte) []byte {
	t.Helper()
	token := calltoken.New(key.Public().(ed25519.PublicKey), canister, method, args, testClockEpoch, 5*time.Minute)
	tokenBytes, err := calltoken.Mint(key, token)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return tokenBytes
}

// newTestDispatcher registers "greet" (anonymous allowed) and "whoami"
// (token required) on testCanister. Both reply with the caller's
// principal text; greet also echoes its first argument.
func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	dispatcher := NewDispatcher(AuthConfig{
		Clock:  clock.Fake(testClockEpoch),
		Replay: calltoken.NewReplayGuard(),
	}, testLogger())

	dispatcher.Handle(testCanister, "greet", func(ctx context.Context, call *Call) (any, error) {
		var args []string
		if err := codec.Unmarshal(call.Args, &args); err != nil {
			return nil, Reject(CodeInvalidRequest, "decoding args: %v", err)
		}
		if len(args) != 1 {
			return nil, Reject(CodeInvalidRequest, "want 1 argument, got %d", len(args))
		}
		return map[string]any{"hello": args[0], "caller": call.Caller.String()}, nil
	})
	dispatcher.HandleAuth(testCanister, "whoami", func(ctx context.Context, call *Call) (any, error) {
		return call.Caller.String(), nil
	})
	dispatcher.Handle(testCanister, "fail", func(ctx context.Context, call *Call) (any, error) {
		return nil, errors.New("ledger unavailable")
	})
	dispatcher.Handle(testCanister, "nothing", func(ctx context.Context, call *Call) (any, error) {
		return nil, nil
	})
	return dispatcher
}

func decodeReply(t *testing.T, data []byte) any {
	t.Helper()
	tree, err := codec.DecodeTree(data)
	if err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	return tree
}

func TestDispatchRouting(t *testing.T) {
	dispatcher := newTestDispatcher(t)
	ctx := t.Context()

	tests := []struct {
		name     string
		request  Request
		wantOK   bool
		wantCode string
	}{
		{"anonymous greet", Request{CanisterID: testCanister, Method: "greet", Args: encodeArgs(t, "dirt")}, true, ""},
		{"unknown canister", Request{CanisterID: "aaaaa-aa", Method: "greet", Args: encodeArgs(t)}, false, CodeUnknownCanister},
		{"unknown method", Request{CanisterID: testCanister, Method: "nope", Args: encodeArgs(t)}, false, CodeUnknownMethod},
		{"handler reject", Request{CanisterID: testCanister, Method: "greet", Args: encodeArgs(t)}, false, CodeInvalidRequest},
		{"handler failure", Request{CanisterID: testCanister, Method: "fail", Args: encodeArgs(t)}, false, CodeCanisterError},
		{"anonymous on auth method", Request{CanisterID: testCanister, Method: "whoami", Args: encodeArgs(t)}, false, CodeUnauthorized},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := dispatcher.Dispatch(ctx, &test.request)
			if response.OK != test.wantOK || response.Code != test.wantCode {
				t.Errorf("response = ok:%v code:%q error:%q, want ok:%v code:%q",
					response.OK, response.Code, response.Error, test.wantOK, test.wantCode)
			}
		})
	}
}

func TestDispatchNilResult(t *testing.T) {
	response := newTestDispatcher(t).Dispatch(t.Context(), &Request{CanisterID: testCanister, Method: "nothing", Args: encodeArgs(t)})
	if !response.OK || len(response.Data) != 0 {
		t.Errorf("response = %+v, want ok with no data", response)
	}
}

func TestDispatchAuthenticatedCaller(t *testing.T) {
	dispatcher := newTestDispatcher(t)
	key := testKey(t)
	args := encodeArgs(t)

	response := dispatcher.Dispatch(t.Context(), &Request{
		CanisterID: testCanister,
		Method:     "whoami",
		Args:       args,
		Token:      mintTestToken(t, key, testCanister, "whoami", args),
	})
	if !response.OK {
		t.Fatalf("whoami rejected: %s %s", response.Code, response.Error)
	}
	want := principal.SelfAuthenticating(key.Public().(ed25519.PublicKey)).String()
	if got := decodeReply(t, response.Data); got != want {
		t.Errorf("caller = %v, want %s", got, want)
	}
}

func TestDispatchRejectsBadTokens(t *testing.T) {
	key := testKey(t)
	args := encodeArgs(t, "x")

	t.Run("replayed", func(t *testing.T) {
		dispatcher := newTestDispatcher(t)
		token := mintTestToken(t, key, testCanister, "greet", args)
		request := &Request{CanisterID: testCanister, Method: "greet", Args: args, Token: token}
		if response := dispatcher.Dispatch(t.Context(), request); !response.OK {
			t.Fatalf("first use rejected: %s", response.Error)
		}
		if response := dispatcher.Dispatch(t.Context(), request); response.Code != CodeUnauthorized {
			t.Errorf("replay: code = %q, want %q", response.Code, CodeUnauthorized)
		}
	})

	t.Run("bound to other method", func(t *testing.T) {
		dispatcher := newTestDispatcher(t)
		token := mintTestToken(t, key, testCanister, "whoami", args)
		response := dispatcher.Dispatch(t.Context(), &Request{CanisterID: testCanister, Method: "greet", Args: args, Token: token})
		if response.Code != CodeUnauthorized {
			t.Errorf("code = %q, want %q", response.Code, CodeUnauthorized)
		}
	})

	t.Run("other arguments", func(t *testing.T) {
		dispatcher := newTestDispatcher(t)
		token := mintTestToken(t, key, testCanister, "greet", args)
		response := dispatcher.Dispatch(t.Context(), &Request{CanisterID: testCanister, Method: "greet", Args: encodeArgs(t, "y"), Token: token})
		if response.Code != CodeUnauthorized {
			t.Errorf("code = %q, want %q", response.Code, CodeUnauthorized)
		}
	})

	t.Run("expired", func(t *testing.T) {
		fake := clock.Fake(testClockEpoch)
		dispatcher := NewDispatcher(AuthConfig{Clock: fake}, testLogger())
		dispatcher.HandleAuth(testCanister, "whoami", func(ctx context.Context, call *Call) (any, error) { return "ok", nil })
		token := mintTestToken(t, key, testCanister, "whoami", args)
		fake.Advance(10 * time.Minute)
		response := dispatcher.Dispatch(t.Context(), &Request{CanisterID: testCanister, Method: "whoami", Args: args, Token: token})
		if response.Code != CodeUnauthorized {
			t.Errorf("code = %q, want %q", response.Code, CodeUnauthorized)
		}
	})
}

func TestDispatcherDuplicateHandlerPanics(t *testing.T) {
	dispatcher := NewDispatcher(AuthConfig{}, testLogger())
	dispatcher.Handle(testCanister, "m", func(ctx context.Context, call *Call) (any, error) { return nil, nil })
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	dispatcher.HandleAuth(testCanister, "m", func(ctx context.Context, call *Call) (any, error) { return nil, nil })
}

// startSocketServer serves dispatcher on a fresh socket until the
// test ends.
func startSocketServer(t *testing.T, dispatcher *Dispatcher) string {
	t.Helper()
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, dispatcher, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	var serveErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		serveErr = server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
		if serveErr != nil {
			t.Errorf("Serve returned error: %v", serveErr)
		}
	})

	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "socket server ready")
	return socketPath
}

func TestSocketClientRoundTrip(t *testing.T) {
	socketPath := startSocketServer(t, newTestDispatcher(t))
	client := NewSocketClient(socketPath)

	data, err := client.Call(t.Context(), &Request{CanisterID: testCanister, Method: "greet", Query: true, Args: encodeArgs(t, "dirt")})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	reply := decodeReply(t, data).(map[string]any)
	if reply["hello"] != "dirt" || reply["caller"] != principal.Anonymous().String() {
		t.Errorf("reply = %v", reply)
	}

	_, err = client.Call(t.Context(), &Request{CanisterID: testCanister, Method: "whoami", Args: encodeArgs(t)})
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("anonymous whoami: error = %v, want *ServiceError", err)
	}
	if !IsUnauthorized(err) || serviceErr.Method != "whoami" {
		t.Errorf("ServiceError = %+v", serviceErr)
	}
}

func TestSocketClientConcurrentCalls(t *testing.T) {
	socketPath := startSocketServer(t, newTestDispatcher(t))
	client := NewSocketClient(socketPath)

	const callers = 16
	errs := make(chan error, callers)
	for range callers {
		name := testutil.UniqueID("miner")
		args := encodeArgs(t, name)
		go func() {
			data, err := client.Call(t.Context(), &Request{CanisterID: testCanister, Method: "greet", Args: args})
			if err != nil {
				errs <- err
				return
			}
			tree, err := codec.DecodeTree(data)
			if err != nil {
				errs <- err
				return
			}
			if tree.(map[string]any)["hello"] != name {
				errs <- errors.New("reply for another caller")
				return
			}
			errs <- nil
		}()
	}
	for range callers {
		if err := testutil.RequireReceive(t, errs, 10*time.Second, "concurrent call"); err != nil {
			t.Errorf("concurrent call: %v", err)
		}
	}
}

func TestSocketClientConnectFailure(t *testing.T) {
	client := NewSocketClient(filepath.Join(testutil.SocketDir(t), "missing.sock"))
	_, err := client.Call(t.Context(), &Request{CanisterID: testCanister, Method: "greet"})
	if err == nil {
		t.Fatal("Call to a missing socket succeeded")
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		t.Errorf("connect failure reported as *ServiceError: %v", err)
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint    string
		wantScheme  string
		wantAddress string
		wantErr     bool
	}{
		{"unix:/run/actorlink/backend.sock", SchemeUnix, "/run/actorlink/backend.sock", false},
		{"unix:///run/actorlink/backend.sock", SchemeUnix, "/run/actorlink/backend.sock", false},
		{"http://127.0.0.1:4943", SchemeHTTP, "http://127.0.0.1:4943", false},
		{"https://icp-api.io", SchemeHTTPS, "https://icp-api.io", false},
		{"unix:relative.sock", "", "", true},
		{"http://", "", "", true},
		{"ftp://example.com", "", "", true},
		{"", "", "", true},
	}
	for _, test := range tests {
		t.Run(test.endpoint, func(t *testing.T) {
			scheme, address, err := ParseEndpoint(test.endpoint)
			if test.wantErr {
				if !errors.Is(err, ErrUnsupportedEndpoint) {
					t.Errorf("error = %v, want ErrUnsupportedEndpoint", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEndpoint: %v", err)
			}
			if scheme != test.wantScheme || address != test.wantAddress {
				t.Errorf("got %s %s, want %s %s", scheme, address, test.wantScheme, test.wantAddress)
			}
		})
	}
}

func TestRouterUsesSocketEndpoint(t *testing.T) {
	socketPath := startSocketServer(t, newTestDispatcher(t))
	router := NewRouter(nil)

	data, err := router.Call(t.Context(), &Request{
		Endpoint:   "unix:" + socketPath,
		CanisterID: testCanister,
		Method:     "greet",
		Args:       encodeArgs(t, "routed"),
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if decodeReply(t, data).(map[string]any)["hello"] != "routed" {
		t.Errorf("unexpected reply")
	}

	if _, err := router.Call(t.Context(), &Request{Endpoint: "carrier-pigeon", CanisterID: testCanister, Method: "greet"}); !errors.Is(err, ErrUnsupportedEndpoint) {
		t.Errorf("bad endpoint: error = %v, want ErrUnsupportedEndpoint", err)
	}
}
