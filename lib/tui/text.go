// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Fit truncates or pads a possibly styled line to exactly width
// display columns. Escape sequences are preserved.
func Fit(line string, width int) string {
	if width <= 0 {
		return ""
	}
	line = Truncate(line, width)
	return line + strings.Repeat(" ", width-ansi.StringWidth(line))
}

// Truncate shortens a possibly styled line to at most width display
// columns, ending it with an ellipsis when cut.
func Truncate(line string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(line) <= width {
		return line
	}
	return ansi.Truncate(line, width, "…")
}

// Columns lays out left and right on one line of width columns, with
// left truncated first when they do not fit.
func Columns(left, right string, width int) string {
	rightWidth := ansi.StringWidth(right)
	if rightWidth >= width {
		return Fit(right, width)
	}
	return Fit(left, width-rightWidth) + right
}
