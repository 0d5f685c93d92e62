// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import "fmt"

// ScanRequest is the body of POST /scan.
type ScanRequest struct {
	QRToken       string `json:"qrToken"`
	RecursoID     int64  `json:"recursoId"`
	AdultosUsados int    `json:"adultosUsados"`
	MenoresUsados int    `json:"menoresUsados"`
}

// Response is a received HTTP response to a scan submission.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// Body is the decoded JSON object. Empty (never nil) when the
	// body was empty or not a JSON object.
	Body map[string]any

	// Raw is the undecoded body, bounded by netutil.MaxResponseSize.
	Raw []byte

	// RequestID is the X-Request-Id sent with the request.
	RequestID string
}

// Success reports whether Status is one of the two success codes the
// scan endpoint uses.
func (r *Response) Success() bool {
	return r.Status == 200 || r.Status == 201
}

// ScopeKind selects the aggregation level of a metrics query.
type ScopeKind int

const (
	// ScopeResource aggregates a single resource (recurso).
	ScopeResource ScopeKind = iota

	// ScopeVillage aggregates every resource of a village (pueblo).
	ScopeVillage
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeResource:
		return "resource"
	case ScopeVillage:
		return "village"
	default:
		return fmt.Sprintf("ScopeKind(%d)", int(k))
	}
}

// Scope identifies what a metrics query aggregates.
type Scope struct {
	Kind ScopeKind
	ID   string
}

func (s Scope) String() string {
	return s.Kind.String() + ":" + s.ID
}

// path returns the endpoint path and query parameter name for s.
func (s Scope) path() (path, param string) {
	if s.Kind == ScopeVillage {
		return "/validator/metrics-by-village", "puebloId"
	}
	return "/validator/metrics", "recursoId"
}
