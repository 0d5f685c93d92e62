// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validation

import "fmt"

// Phase is the validator's position in its cycle.
type Phase int

const (
	// PhaseScanning is the initial phase and the only one that
	// accepts a payload.
	PhaseScanning Phase = iota

	// PhaseSubmitting means a request is in flight.
	PhaseSubmitting

	// PhaseShowingResult holds a result on screen for the display
	// window. Metrics updates are suppressed.
	PhaseShowingResult

	// PhaseHalted means the reader could not be acquired. Persistent
	// until the program restarts.
	PhaseHalted
)

func (p Phase) String() string {
	switch p {
	case PhaseScanning:
		return "scanning"
	case PhaseSubmitting:
		return "submitting"
	case PhaseShowingResult:
		return "showing-result"
	case PhaseHalted:
		return "halted"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// transitions lists the legal edges. Halted is reachable from
// anywhere and left never.
var transitions = map[Phase][]Phase{
	PhaseScanning:      {PhaseSubmitting, PhaseShowingResult, PhaseHalted},
	PhaseSubmitting:    {PhaseShowingResult, PhaseHalted},
	PhaseShowingResult: {PhaseScanning, PhaseHalted},
	PhaseHalted:        nil,
}

// canTransition reports whether from → to is a legal edge.
func canTransition(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
