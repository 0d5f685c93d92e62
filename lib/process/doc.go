// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the validator
// binaries. Fatal is the one sanctioned raw write to stderr, used
// when run() fails before a logger exists.
package process
