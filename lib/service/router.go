// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Endpoint schemes.
const (
	SchemeUnix  = "unix"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// ErrUnsupportedEndpoint is returned for endpoints that no client
// understands.
var ErrUnsupportedEndpoint = errors.New("unsupported endpoint")

// ParseEndpoint splits an endpoint into its scheme and address.
// Accepted forms:
//
//	unix:/run/actorlink/backend.sock
//	unix:///run/actorlink/backend.sock
//	http://127.0.0.1:4943
//	https://icp-api.io
func ParseEndpoint(endpoint string) (scheme, address string, err error) {
	switch {
	case strings.HasPrefix(endpoint, "unix:"):
		path := strings.TrimPrefix(endpoint, "unix:")
		path = strings.TrimPrefix(path, "//")
		if !strings.HasPrefix(path, "/") {
			return "", "", fmt.Errorf("%w: unix socket path must be absolute: %q", ErrUnsupportedEndpoint, endpoint)
		}
		return SchemeUnix, path, nil
	case strings.HasPrefix(endpoint, "http://"), strings.HasPrefix(endpoint, "https://"):
		scheme, rest, _ := strings.Cut(endpoint, "://")
		if rest == "" || strings.HasPrefix(rest, "/") {
			return "", "", fmt.Errorf("%w: missing host: %q", ErrUnsupportedEndpoint, endpoint)
		}
		return scheme, endpoint, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedEndpoint, endpoint)
	}
}

// caller is the common surface of SocketClient and HTTPClient.
type caller interface {
	Call(ctx context.Context, request *Request) ([]byte, error)
}

// Router sends each request to a client chosen by request.Endpoint.
// Clients are created on first use and reused.
type Router struct {
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]caller
}

// NewRouter creates a router. httpClient is shared by every HTTP
// endpoint; nil uses a client with the standard response timeout.
func NewRouter(httpClient *http.Client) *Router {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: responseReadTimeout}
	}
	return &Router{
		httpClient: httpClient,
		clients:    make(map[string]caller),
	}
}

// Call routes request to its endpoint and returns the raw reply
// payload.
func (r *Router) Call(ctx context.Context, request *Request) ([]byte, error) {
	client, err := r.client(request.Endpoint)
	if err != nil {
		return nil, err
	}
	return client.Call(ctx, request)
}

func (r *Router) client(endpoint string) (caller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[endpoint]; ok {
		return client, nil
	}

	scheme, address, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	var client caller
	switch scheme {
	case SchemeUnix:
		client = NewSocketClient(address)
	default:
		client = NewHTTPClient(address, r.httpClient)
	}
	r.clients[endpoint] = client
	return client, nil
}
