// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package kiosk assembles a running validator from configuration: the
// backend client, the scan journal, the reader, the validation cycle,
// the metrics poller and the wake lock.
//
// [Assemble] constructs everything and wires the callbacks between
// components (decoded payloads into the validator, reader failures
// into a halt, result villages into the poller, completed cycles into
// an immediate refresh). [Kiosk.Start] acquires the reader and starts
// polling; [Kiosk.Close] tears down in dependency order. The user
// interface is not part of the kiosk: the TUI and headless printer
// both observe the exported components.
package kiosk
