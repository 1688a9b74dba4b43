// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/actorlink/lib/codec"
)

// dialTimeout is the maximum time to wait for a connection to the
// service socket. It covers only the connect phase.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for the server to
// send a response after writing the request. Matched to the server's
// readTimeout + writeTimeout to account for handler execution time.
const responseReadTimeout = 45 * time.Second

// maxResponseSize is the maximum size of a single CBOR response.
const maxResponseSize = 4 * 1024 * 1024

// SocketClient sends calls to a backend over a Unix socket. Each Call
// opens a new connection (matching the server's one-request-per-
// connection model), sends the request, reads the response, and
// closes the connection.
type SocketClient struct {
	socketPath string
}

// NewSocketClient creates a client for the socket at socketPath.
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{socketPath: socketPath}
}

// Call sends request and returns the raw reply payload.
//
// On failure (response ok=false), returns a *ServiceError carrying the
// rejection code. Connection and encoding errors are returned as plain
// errors (not *ServiceError).
func (c *SocketClient) Call(ctx context.Context, request *Request) ([]byte, error) {
	response, err := c.send(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("calling %s.%s on %s: %w", request.CanisterID, request.Method, c.socketPath, err)
	}
	if !response.OK {
		return nil, errorFromResponse(request, response)
	}
	return response.Data, nil
}

// send connects to the socket, writes the request, and reads the
// response. Each call creates a new connection.
func (c *SocketClient) send(ctx context.Context, request *Request) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(responseReadTimeout))

	// Abort the exchange when the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close the write side. CBOR is self-delimiting so this
	// isn't strictly necessary, but it lets the server's read side
	// see EOF cleanly.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &response, nil
}
