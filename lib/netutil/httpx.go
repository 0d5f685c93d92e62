// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP body helpers for the backend
// client and the mock backend.
//
// Every read of a response or request body goes through these helpers
// so a misbehaving server cannot make the kiosk allocate without
// bound. The validation and metrics endpoints return small JSON
// objects; the bound is generous relative to them.
package netutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds JSON body reads: 4 MB.
const MaxResponseSize int64 = 4 << 20

// ReadResponse reads a body up to MaxResponseSize bytes. Use instead
// of io.ReadAll when reading HTTP bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a body (up to MaxResponseSize bytes) and
// JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// DecodeObject parses data as a JSON object. Numbers stay as
// json.Number so integer counts survive without float rounding. A
// body that is empty, not JSON, or JSON of another shape yields an
// empty map and ok=false; callers treat such bodies as carrying no
// fields rather than as errors.
func DecodeObject(data []byte) (object map[string]any, ok bool) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&object); err != nil || object == nil {
		return map[string]any{}, false
	}
	return object, true
}

// ErrorBody reads an error response body as a string for diagnostic
// messages. Read errors are ignored; a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := ReadResponse(body)
	return string(data)
}
