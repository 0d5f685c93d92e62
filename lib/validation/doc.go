// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package validation turns decoded QR payloads into VALID, INVALID or
// ERROR results and drives the operator-facing phase machine.
//
// The [Validator] is a guarded finite state machine:
//
//	Scanning ──accept──▶ Submitting ──response──▶ ShowingResult ──2s──▶ Scanning
//	Scanning ──malformed token──────────────────▶ ShowingResult
//	any ──reader lost──▶ Halted
//
// Only Scanning accepts a payload, so at most one request is ever in
// flight and decodes arriving meanwhile are dropped, never queued. The
// reader is stopped before the request is sent and restarted only when
// the display window elapses, so scanning and result display never
// overlap. When the window closes the validator asks for a metrics
// refresh.
//
// [Interpret] is the single place where the scan endpoint's field
// names appear. The backend has no documented response schema: a
// result is VALID only when a validity flag is explicitly affirmative.
//
// No error escapes the validator. Transport failures, server errors
// and losing the reader all become a [Result].
package validation
