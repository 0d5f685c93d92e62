// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validation

import (
	"strconv"
	"time"
)

// Outcome is the category of a finished validation.
type Outcome string

const (
	Valid   Outcome = "VALID"
	Invalid Outcome = "INVALID"
	Error   Outcome = "ERROR"
)

// Reasons produced locally. Server-supplied reasons are passed through
// verbatim.
const (
	ReasonMalformed = "malformed code"
	ReasonNetwork   = "network error"
	ReasonServer    = "server error"
	ReasonInvalid   = "invalid code"
	ReasonCamera    = "camera unavailable"
)

// Result is what the operator sees for one attempt.
type Result struct {
	Outcome Outcome
	Reason  string

	VillageID    string
	VillageName  string
	ResourceName string

	// Adults and Minors are the counts the server applied, zero when
	// not reported.
	Adults int
	Minors int

	Discount    float64
	HasDiscount bool

	// HTTPStatus is zero when no response was received.
	HTTPStatus int

	At time.Time
}

// DiscountText formats the applied discount as "15%", or "" when the
// server reported none.
func (r Result) DiscountText() string {
	if !r.HasDiscount {
		return ""
	}
	return strconv.FormatFloat(r.Discount, 'f', -1, 64) + "%"
}
