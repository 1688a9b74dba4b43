// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// compressionThreshold is the smallest response body worth
// compressing. Small envelopes (scalar replies, rejections) grow
// under every codec's framing.
const compressionThreshold = 512

// Supported content codings in server preference order.
const (
	encodingZstd = "zstd"
	encodingGzip = "gzip"
	encodingLZ4  = "lz4"
)

// acceptEncoding is what clients advertise.
const acceptEncoding = encodingZstd + ", " + encodingGzip + ", " + encodingLZ4

var serverPreference = []string{encodingZstd, encodingGzip, encodingLZ4}

// zstdEncoder and zstdDecoder are shared: EncodeAll and DecodeAll are
// safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("service: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxResponseSize))
	if err != nil {
		panic("service: zstd decoder initialization failed: " + err.Error())
	}
}

// negotiateEncoding picks the server's preferred coding among those
// the Accept-Encoding header allows. Returns "" for identity.
func negotiateEncoding(header string) string {
	accepted := make(map[string]bool)
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok && isZeroQuality(q) {
			continue
		}
		accepted[name] = true
	}
	for _, encoding := range serverPreference {
		if accepted[encoding] {
			return encoding
		}
	}
	return ""
}

func isZeroQuality(q string) bool {
	q = strings.TrimSpace(q)
	return strings.Trim(q, "0.") == "" && q != ""
}

// compress encodes data with the named coding.
func compress(encoding string, data []byte) ([]byte, error) {
	switch encoding {
	case encodingZstd:
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case encodingGzip:
		var buffer bytes.Buffer
		writer := gzip.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
		return buffer.Bytes(), nil
	case encodingLZ4:
		var buffer bytes.Buffer
		writer := lz4.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
		return buffer.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

// decompressReader wraps body according to a Content-Encoding value.
func decompressReader(encoding string, body io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil
	case encodingZstd:
		compressed, err := io.ReadAll(io.LimitReader(body, maxResponseSize+1))
		if err != nil {
			return nil, fmt.Errorf("reading zstd response: %w", err)
		}
		data, err := zstdDecoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decoding zstd response: %w", err)
		}
		return bytes.NewReader(data), nil
	case encodingGzip:
		reader, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("decoding gzip response: %w", err)
		}
		return reader, nil
	case encodingLZ4:
		return lz4.NewReader(body), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
