// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the validator
// packages.
//
// [RequireReceive], [RequireNoReceive] and [RequireClosed] wrap the
// select-with-timeout pattern so tests never call time.After
// directly. They are the only place tests touch the wall clock; every
// timing rule under test runs on a fake clock.
//
// [TempPath] returns a file path inside a per-test directory, for
// journals and configuration files.
//
// All helpers call t.Fatalf on failure.
package testutil
