// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import "fmt"

// TransportError reports a request that received no HTTP response:
// connection refused, DNS failure, reset, timeout or cancellation.
//
//	var transportErr *backend.TransportError
//	if errors.As(err, &transportErr) { ... }
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a metrics response with a non-2xx status.
type StatusError struct {
	Status int
	Path   string
	// Body is a bounded copy of the response body for diagnostics.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: unexpected %d from %s: %s", e.Status, e.Path, e.Body)
}
