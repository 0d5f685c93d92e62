// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validatorui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/lpbme/club-validator/lib/validation"
)

// Headless prints one line per finished validation.
type Headless struct {
	output    *termenv.Output
	validator Validator
}

// NewHeadless writes to w. Colors follow what w supports; pass
// termenv options to force a profile.
func NewHeadless(w io.Writer, validator Validator, options ...termenv.OutputOption) *Headless {
	return &Headless{output: termenv.NewOutput(w, options...), validator: validator}
}

// Run prints results until ctx is cancelled.
func (h *Headless) Run(ctx context.Context) error {
	var last validation.State
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.validator.Updates():
		}

		state := h.validator.State()
		if shown(state) && !sameResult(state, last) {
			fmt.Fprintln(h.output, h.Format(*state.Result))
		}
		last = state
	}
}

func shown(state validation.State) bool {
	return state.Result != nil &&
		(state.Phase == validation.PhaseShowingResult || state.Phase == validation.PhaseHalted)
}

func sameResult(state, last validation.State) bool {
	return shown(last) && state.Phase == last.Phase && *state.Result == *last.Result
}

// Format renders result as a single line.
func (h *Headless) Format(result validation.Result) string {
	var color termenv.Color
	switch result.Outcome {
	case validation.Valid:
		color = h.output.Color("2")
	case validation.Invalid:
		color = h.output.Color("1")
	default:
		color = h.output.Color("9")
	}
	outcome := h.output.String(fmt.Sprintf("%-7s", result.Outcome)).Foreground(color).Bold()

	details := []string{}
	if result.Reason != "" {
		details = append(details, result.Reason)
	}
	if place := joinNonEmpty(" · ", result.VillageName, result.ResourceName); place != "" {
		details = append(details, place)
	}
	if result.Outcome == validation.Valid {
		details = append(details, fmt.Sprintf("%d+%d", result.Adults, result.Minors))
		if discount := result.DiscountText(); discount != "" {
			details = append(details, discount)
		}
	}

	line := result.At.Format("15:04:05") + " " + outcome.String()
	if len(details) > 0 {
		line += " " + strings.Join(details, " · ")
	}
	return line
}
