// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scanner owns the QR reader: acquiring it, polling it for
// decoded payloads and releasing it.
//
// A [Source] hands out an exclusive [Stream]. Three sources exist:
// [DeviceSource] reads a line-oriented scanner device under an
// exclusive flock, [FeedSource] is fed by the TUI from a
// keyboard-wedge scanner, and [ReaderSource] feeds lines from an
// io.Reader such as standard input.
//
// The [Controller] polls the stream once per frame (10 per second by
// default) on an injected clock. A frame with no code is not an
// error. Accepted payloads pass through a [Deduplicator] that drops a
// repeat of the same text within three seconds of its last
// acceptance, so a card held in front of the reader is scanned once.
//
// Failure to open the source is reported as [ErrCameraUnavailable]
// and never retried. The stream is always closed by Stop, and Close
// is Stop, so the device lock cannot leak past teardown.
package scanner
