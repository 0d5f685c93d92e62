// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui holds the look shared by the validator's terminal
// surfaces: the color theme and ANSI-aware line fitting. The
// interactive model itself lives in lib/validatorui.
package tui
