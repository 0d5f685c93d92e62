// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lpbme/club-validator/lib/validation"
)

// Theme is the validator palette. All colors are ANSI 256-color codes
// so the kiosk looks the same on a bare Linux console and in a
// terminal emulator.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Result banner backgrounds. Foreground on all three is
	// BannerText.
	Valid      lipgloss.Color
	Invalid    lipgloss.Color
	Error      lipgloss.Color
	BannerText lipgloss.Color

	// Scanning is the accent of the idle "present a code" banner.
	Scanning lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Stale marks metrics panels whose last refresh failed.
	Stale lipgloss.Color
}

// OutcomeColor returns the banner color for an outcome. Unknown
// outcomes get the error color.
func (theme Theme) OutcomeColor(outcome validation.Outcome) lipgloss.Color {
	switch outcome {
	case validation.Valid:
		return theme.Valid
	case validation.Invalid:
		return theme.Invalid
	default:
		return theme.Error
	}
}

// Banner returns the style of a full-width result banner.
func (theme Theme) Banner(outcome validation.Outcome, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.BannerText).
		Background(theme.OutcomeColor(outcome)).
		Width(width).
		Align(lipgloss.Center).
		Padding(1, 0)
}

// DefaultTheme targets a dark background.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	Valid:      lipgloss.Color("28"),  // green
	Invalid:    lipgloss.Color("160"), // red
	Error:      lipgloss.Color("88"),  // dark red
	BannerText: lipgloss.Color("231"),

	Scanning: lipgloss.Color("75"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	Stale: lipgloss.Color("214"),
}
