// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics keeps the operator dashboard's usage counters
// current.
//
// [Normalize] maps any metrics body the backend has produced onto the
// canonical [Snapshot]: numbers coerced to non-negative integers,
// missing lists replaced by empty ones. It is the only place the
// metrics field names appear.
//
// The [Poller] fetches the resource scope every 15 seconds and, once
// a validation reveals the owning village, the village scope on its
// own 15-second cadence. Timers always run; each tick first asks the
// suppression predicate whether a result is on screen, and if so the
// tick is skipped rather than deferred. A fetch that completes while
// suppressed is discarded for the same reason. A failed fetch marks
// the scope with an error and keeps the previous snapshot visible.
package metrics
