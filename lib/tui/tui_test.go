// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/lpbme/club-validator/lib/validation"
)

func TestOutcomeColor(t *testing.T) {
	theme := DefaultTheme
	tests := []struct {
		outcome validation.Outcome
		want    lipgloss.Color
	}{
		{validation.Valid, theme.Valid},
		{validation.Invalid, theme.Invalid},
		{validation.Error, theme.Error},
		{"", theme.Error},
	}
	for _, test := range tests {
		if got := theme.OutcomeColor(test.outcome); got != test.want {
			t.Errorf("OutcomeColor(%q) = %v, want %v", test.outcome, got, test.want)
		}
	}
	if theme.Valid == theme.Invalid {
		t.Error("VALID and INVALID share a color")
	}
}

func TestFit(t *testing.T) {
	styled := lipgloss.NewStyle().Foreground(lipgloss.Color("28")).Render("Albarracín")
	tests := []struct {
		name  string
		line  string
		width int
	}{
		{"pads plain", "VALID", 12},
		{"truncates plain", "Museo de Albarracín", 8},
		{"pads styled", styled, 20},
		{"truncates styled", styled, 4},
		{"exact", "12345", 5},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Fit(test.line, test.width)
			if width := ansi.StringWidth(got); width != test.width {
				t.Errorf("Fit width = %d, want %d (%q)", width, test.width, got)
			}
		})
	}
	if Fit("anything", 0) != "" {
		t.Error("Fit to zero width should be empty")
	}
	if got := Fit("Museo de Albarracín", 8); !strings.HasSuffix(got, "…") {
		t.Errorf("truncated line %q has no ellipsis", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("VALID", 10); got != "VALID" {
		t.Errorf("Truncate short line = %q", got)
	}
	if got := Truncate("Museo de Albarracín", 6); ansi.StringWidth(got) != 6 || !strings.HasSuffix(got, "…") {
		t.Errorf("Truncate long line = %q", got)
	}
}

func TestColumns(t *testing.T) {
	line := Columns("Museo de Albarracín", "12:04", 16)
	if ansi.StringWidth(line) != 16 {
		t.Errorf("Columns width = %d, want 16", ansi.StringWidth(line))
	}
	if !strings.HasSuffix(line, "12:04") {
		t.Errorf("Columns dropped the right side: %q", line)
	}
}
