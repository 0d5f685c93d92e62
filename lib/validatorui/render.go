// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validatorui

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/lpbme/club-validator/lib/backend"
	"github.com/lpbme/club-validator/lib/metrics"
	"github.com/lpbme/club-validator/lib/tui"
	"github.com/lpbme/club-validator/lib/validation"
)

// recentLimit is how many recent scans the dashboard lists.
const recentLimit = 5

// View implements tea.Model.
func (model Model) View() string {
	width := max(model.width, 40)
	sections := []string{
		model.renderHeader(width),
		model.renderBanner(width),
		model.renderCompanions(width),
	}
	if model.metrics != nil {
		sections = append(sections, model.renderScope(model.view.Resource, width))
		if model.view.Village != nil {
			sections = append(sections, model.renderScope(*model.view.Village, width))
		}
	}
	sections = append(sections, model.renderFooter(width))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model Model) renderHeader(width int) string {
	title := "Club validator · resource " + strconv.FormatInt(model.state.ResourceID, 10)
	if model.state.VillageName != "" {
		title += " · " + model.state.VillageName
	}
	right := model.clock.Now().Format("15:04")
	if model.wakeHeld {
		right = "awake · " + right
	}
	style := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	return style.Render(tui.Columns(title, "  "+right, width))
}

func (model Model) renderBanner(width int) string {
	theme := model.theme
	state := model.state

	switch {
	case state.Phase == validation.PhaseScanning:
		return theme.Banner(validation.Valid, width).
			Background(theme.Scanning).
			Render("PRESENT A CLUB QR CODE")
	case state.Phase == validation.PhaseSubmitting:
		return theme.Banner(validation.Valid, width).
			Background(theme.Scanning).
			Render("VALIDATING…")
	case state.Result == nil:
		return theme.Banner(validation.Error, width).Render("HALTED")
	}

	result := state.Result
	lines := []string{string(result.Outcome)}
	if result.Reason != "" {
		lines = append(lines, result.Reason)
	}
	if place := joinNonEmpty(" · ", result.VillageName, result.ResourceName); place != "" {
		lines = append(lines, place)
	}
	if result.Outcome == validation.Valid {
		party := plural(result.Adults, "adult", "adults")
		if result.Minors > 0 {
			party += " · " + plural(result.Minors, "minor", "minors")
		}
		lines = append(lines, party)
		if discount := result.DiscountText(); discount != "" {
			lines = append(lines, "discount "+discount)
		}
	}
	if state.Phase == validation.PhaseHalted {
		lines = append(lines, "restart the validator to scan again")
	}
	for i, line := range lines {
		lines[i] = tui.Truncate(line, width-2)
	}
	return theme.Banner(result.Outcome, width).Render(strings.Join(lines, "\n"))
}

func (model Model) renderCompanions(width int) string {
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	normal := lipgloss.NewStyle().Foreground(model.theme.NormalText).Bold(true)
	left := faint.Render("next scan: ") +
		normal.Render(plural(model.state.Adults, "adult", "adults")) +
		faint.Render(" + ") +
		normal.Render(plural(model.state.Minors, "minor", "minors"))
	right := ""
	if len(model.input) > 0 {
		right = faint.Render("  input: ") + string(model.input) + "▌"
	}
	return tui.Columns(left, right, width)
}

func (model Model) renderScope(view metrics.ScopeView, width int) string {
	theme := model.theme
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground)

	title := scopeTitle(view.Scope)
	var state string
	switch {
	case view.Err != nil && view.Loaded:
		state = lipgloss.NewStyle().Foreground(theme.Stale).
			Render("stale, updated " + humanize.RelTime(view.UpdatedAt, model.clock.Now(), "ago", "from now"))
	case view.Err != nil:
		state = lipgloss.NewStyle().Foreground(theme.Stale).Render("unavailable: " + view.Err.Error())
	case !view.Loaded:
		state = faint.Render("loading…")
	default:
		state = faint.Render("updated " + humanize.RelTime(view.UpdatedAt, model.clock.Now(), "ago", "from now"))
	}

	today := view.Snapshot.Today
	lines := []string{
		tui.Columns(header.Render(title), "  "+state, width),
		fmt.Sprintf("today  %d scans · %d ok · %d rejected · %d adults · %d minors",
			today.Total, today.OK, today.NoOK, today.Adults, today.Minors),
	}

	if len(view.Snapshot.Days) > 0 {
		days := make([]string, 0, len(view.Snapshot.Days))
		for _, day := range view.Snapshot.Days {
			days = append(days, fmt.Sprintf("%s %d/%d", shortDate(day.Date), day.OK, day.Total))
		}
		lines = append(lines, faint.Render("days   ")+strings.Join(days, "  "))
	}

	for i, scan := range view.Snapshot.Recent {
		if i == recentLimit {
			break
		}
		lines = append(lines, fmt.Sprintf("  %-16s %-10s %d+%d",
			model.scanTime(scan.At), scan.Result, scan.Adults, scan.Minors))
	}

	for i, line := range lines {
		lines[i] = tui.Fit(line, width)
	}
	return lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.BorderColor).
		Render(strings.Join(lines, "\n"))
}

func (model Model) renderFooter(width int) string {
	if model.status != "" {
		color := model.theme.FaintText
		if model.statusLevel >= slog.LevelWarn {
			color = model.theme.Stale
		}
		return lipgloss.NewStyle().Foreground(color).Render(tui.Fit(model.status, width))
	}
	var parts []string
	for _, binding := range model.keys.help() {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(tui.Fit(strings.Join(parts, " · "), width))
}

// scanTime renders a server timestamp relative to now when it parses,
// and verbatim otherwise.
func (model Model) scanTime(value string) string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if at, err := time.Parse(layout, value); err == nil {
			return humanize.RelTime(at, model.clock.Now(), "ago", "from now")
		}
	}
	return value
}

func scopeTitle(scope backend.Scope) string {
	if scope.Kind == backend.ScopeVillage {
		return "Village " + scope.ID
	}
	return "Resource " + scope.ID
}

// shortDate turns "2026-06-12" into "06-12" and leaves anything else
// alone.
func shortDate(date string) string {
	if len(date) == len("2006-01-02") && date[4] == '-' {
		return date[5:]
	}
	return date
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}

func joinNonEmpty(separator string, values ...string) string {
	var kept []string
	for _, value := range values {
		if value != "" {
			kept = append(kept, value)
		}
	}
	return strings.Join(kept, separator)
}
