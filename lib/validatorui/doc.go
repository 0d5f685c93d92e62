// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package validatorui is the operator surface of the kiosk.
//
// [Model] is a bubbletea program showing the result banner, the
// companion counts claimed by the next scan and the metrics
// dashboard. Keyboard-wedge QR readers type the payload followed by
// Enter; the model collects those keystrokes and hands each line to a
// [Feeder], normally a scanner.FeedSource, so a wedge reader goes
// through the same scanner controller as a camera.
//
// Operator keys:
//
//	F2      adults 1 ↔ 2
//	F3      minors 0..5
//	F5      refresh metrics now
//	F6      toggle the wake lock
//	Esc     clear typed input
//	Ctrl+C  quit
//
// [Headless] is the non-interactive alternative: one colored line per
// finished validation on stdout.
//
// Background logging must not write to the terminal while the program
// owns it. [TUILogHandler] routes WARN and above into the status bar.
package validatorui
