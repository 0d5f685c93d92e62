// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service runs HTTP servers for the validator's development
// tooling, chiefly the mock Club backend.
//
// [HTTPServer] owns the listener lifecycle: Serve(ctx) binds, signals
// Ready, and drains in-flight requests when ctx is cancelled. The
// middleware in this package adds request logging and bearer-token
// checks; routing and payloads belong to the caller.
package service
