// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"sync"
	"time"

	"github.com/lpbme/club-validator/lib/clock"
)

// DefaultDedupWindow is how long an accepted payload suppresses
// repeats of itself.
const DefaultDedupWindow = 3 * time.Second

// Deduplicator drops a payload seen again within the window of its
// previous acceptance. Dropped repeats do not extend the window.
type Deduplicator struct {
	clock  clock.Clock
	window time.Duration

	mu       sync.Mutex
	accepted map[string]time.Time
}

// NewDeduplicator returns a Deduplicator. A non-positive window uses
// DefaultDedupWindow.
func NewDeduplicator(c clock.Clock, window time.Duration) *Deduplicator {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Deduplicator{clock: c, window: window, accepted: make(map[string]time.Time)}
}

// Accept reports whether text should be delivered, recording the
// acceptance time if so.
func (d *Deduplicator) Accept(text string) bool {
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for seen, at := range d.accepted {
		if now.Sub(at) >= d.window {
			delete(d.accepted, seen)
		}
	}
	if _, recent := d.accepted[text]; recent {
		return false
	}
	d.accepted[text] = now
	return true
}
