// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/actorlink/lib/codec"
	"github.com/bureau-foundation/actorlink/lib/version"
)

// contentTypeCBOR is the media type of request and response bodies.
const contentTypeCBOR = "application/cbor"

// callPath returns the URL path for a call: .../query for read-only
// calls, .../call for updates.
func callPath(canisterID string, query bool) string {
	kind := "call"
	if query {
		kind = "query"
	}
	return "/api/v2/canister/" + url.PathEscape(canisterID) + "/" + kind
}

// NewHTTPHandler serves the call protocol over HTTP:
//
//	POST /api/v2/canister/{canister}/query
//	POST /api/v2/canister/{canister}/call
//
// The body is a CBOR Request; the canister id and query flag are
// taken from the path. The reply is a CBOR Response, compressed when
// the client's Accept-Encoding allows and the body is large enough
// to benefit.
func NewHTTPHandler(dispatcher *Dispatcher, logger *slog.Logger) http.Handler {
	handler := &httpHandler{dispatcher: dispatcher, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/canister/{canister}/{kind}", handler.serveCall)
	return mux
}

type httpHandler struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func (h *httpHandler) serveCall(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	if kind != "query" && kind != "call" {
		http.NotFound(w, r)
		return
	}
	canisterID := r.PathValue("canister")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize+1))
	if err != nil {
		h.writeResponse(w, r, http.StatusBadRequest, Response{Code: CodeInvalidRequest, Error: fmt.Sprintf("reading body: %v", err)})
		return
	}
	if len(body) > maxRequestSize {
		h.writeResponse(w, r, http.StatusRequestEntityTooLarge, Response{Code: CodeInvalidRequest, Error: "request body too large"})
		return
	}

	var request Request
	if err := codec.Unmarshal(body, &request); err != nil {
		h.writeResponse(w, r, http.StatusBadRequest, Response{Code: CodeInvalidRequest, Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if request.CanisterID != "" && request.CanisterID != canisterID {
		h.writeResponse(w, r, http.StatusBadRequest, Response{
			Code:  CodeInvalidRequest,
			Error: fmt.Sprintf("body names canister %q, path names %q", request.CanisterID, canisterID),
		})
		return
	}
	request.CanisterID = canisterID
	request.Query = kind == "query"
	if request.Method == "" {
		h.writeResponse(w, r, http.StatusBadRequest, Response{Code: CodeInvalidRequest, Error: "missing required field: method"})
		return
	}

	h.writeResponse(w, r, http.StatusOK, h.dispatcher.Dispatch(r.Context(), &request))
}

func (h *httpHandler) writeResponse(w http.ResponseWriter, r *http.Request, status int, response Response) {
	data, err := codec.Marshal(response)
	if err != nil {
		h.logger.Error("marshaling response envelope", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
	if encoding != "" && len(data) >= compressionThreshold {
		compressed, err := compress(encoding, data)
		if err != nil {
			h.logger.Warn("compressing response, sending identity", "encoding", encoding, "error", err)
		} else {
			data = compressed
			w.Header().Set("Content-Encoding", encoding)
		}
	}

	w.Header().Set("Content-Type", contentTypeCBOR)
	w.Header().Add("Vary", "Accept-Encoding")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("failed to write response", "error", err)
	}
}

// HTTPClient sends calls to a backend over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the backend at baseURL (scheme,
// host and optional path prefix). A nil client uses one with the
// standard response timeout.
func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: responseReadTimeout}
	}
	return &HTTPClient{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

// Call posts request and returns the raw reply payload. Rejections
// are returned as *ServiceError; transport and decoding problems as
// plain errors.
func (c *HTTPClient) Call(ctx context.Context, request *Request) ([]byte, error) {
	body, err := codec.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	target := c.baseURL + callPath(request.CanisterID, request.Query)
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", contentTypeCBOR)
	httpRequest.Header.Set("Accept-Encoding", acceptEncoding)
	httpRequest.Header.Set("User-Agent", version.UserAgent())

	httpResponse, err := c.client.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("calling %s.%s at %s: %w", request.CanisterID, request.Method, c.baseURL, err)
	}
	defer httpResponse.Body.Close()

	if contentType := httpResponse.Header.Get("Content-Type"); contentType != contentTypeCBOR {
		snippet, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 256))
		return nil, fmt.Errorf("calling %s.%s: HTTP %d (%s): %s",
			request.CanisterID, request.Method, httpResponse.StatusCode, contentType, strings.TrimSpace(string(snippet)))
	}

	reader, err := decompressReader(httpResponse.Header.Get("Content-Encoding"), httpResponse.Body)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(data) > maxResponseSize {
		return nil, fmt.Errorf("response from %s.%s exceeds %d bytes", request.CanisterID, request.Method, maxResponseSize)
	}

	var response Response
	if err := codec.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("decoding response envelope: %w", err)
	}
	if !response.OK {
		return nil, errorFromResponse(request, &response)
	}
	return response.Data, nil
}
