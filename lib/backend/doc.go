// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend is the HTTP transport for the Club validation
// backend.
//
// Three endpoints are used:
//
//	POST {base}/scan
//	GET  {base}/validator/metrics?recursoId={id}&days={n}
//	GET  {base}/validator/metrics-by-village?puebloId={id}&days={n}
//
// The client deliberately does not interpret response bodies. The
// backend's field names are not a documented contract, so bodies are
// returned as decoded JSON objects and the tolerant adapters in
// lib/validation and lib/metrics map them onto canonical types.
//
// [Client.SubmitScan] returns an error only when no HTTP response was
// received ([TransportError]); any status code, including 5xx, is a
// [Response] for the caller to classify. [Client.Metrics] treats
// non-2xx statuses as a [StatusError] since there is nothing to
// classify in a failed metrics fetch.
//
// No request timeout is applied unless [Config.Timeout] is set.
package backend
