// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mockbackend is an in-memory Club backend for development
// and tests. It serves the scan endpoint and both metrics endpoints
// from a fixture set of villages, resources and passes.
//
// A pass validates once per day. Later scans of the same pass that
// day, unknown tokens and expired passes are answered with a business
// rejection in the shape the real backend uses. A pass may carry a
// forced HTTP status to exercise server-error handling.
//
// With LegacyKeys set, metric bodies use the field spellings older
// backends emitted (validas, ultimos7Dias, escaneos with a valido
// flag), so clients can be checked against both shapes.
package mockbackend
