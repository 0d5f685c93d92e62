// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/lpbme/club-validator/lib/lenient"
)

// Every field name the metrics endpoints have used.
var (
	todayKeys  = []string{"hoy", "today", "hoyTotales"}
	daysKeys   = []string{"ultimosDias", "ultimos7Dias", "dias", "days", "last7Days"}
	recentKeys = []string{"ultimosEscaneos", "escaneos", "recientes", "recent", "lastScans"}
	wrapperKeys = []string{"data", "metrics"}

	totalKeys  = []string{"total", "intentos", "attempts"}
	okKeys     = []string{"ok", "validas", "validos", "exitosos", "successes"}
	noOKKeys   = []string{"noOk", "no_ok", "invalidas", "fallidos", "failures"}
	adultsKeys = []string{"adultos", "adults", "adultosUsados"}
	minorsKeys = []string{"menores", "minors", "menoresUsados"}

	dateKeys     = []string{"fecha", "date", "dia", "day", "timestamp", "createdAt"}
	resultKeys   = []string{"resultado", "result", "estado", "status"}
	validityKeys = []string{"valido", "valid", "ok"}
)

// Normalize maps a raw metrics body onto a Snapshot. It never fails:
// anything missing or malformed becomes zero or empty. A body whose
// fields sit under a "data" or "metrics" envelope is unwrapped.
func Normalize(raw map[string]any) Snapshot {
	snapshot := Empty()
	if raw == nil {
		return snapshot
	}
	if !hasAny(raw, todayKeys, daysKeys, recentKeys) {
		if inner := lenient.ObjectOf(raw, wrapperKeys...); inner != nil {
			raw = inner
		}
	}

	if today := lenient.ObjectOf(raw, todayKeys...); today != nil {
		snapshot.Today = Today{
			Total:  lenient.CountOf(today, totalKeys...),
			OK:     lenient.CountOf(today, okKeys...),
			NoOK:   lenient.CountOf(today, noOKKeys...),
			Adults: lenient.CountOf(today, adultsKeys...),
			Minors: lenient.CountOf(today, minorsKeys...),
		}
	}

	for _, item := range lenient.ListOf(raw, daysKeys...) {
		day := lenient.Object(item)
		if day == nil {
			continue
		}
		snapshot.Days = append(snapshot.Days, Day{
			Date:   lenient.StringOf(day, dateKeys...),
			Total:  lenient.CountOf(day, totalKeys...),
			OK:     lenient.CountOf(day, okKeys...),
			Adults: lenient.CountOf(day, adultsKeys...),
			Minors: lenient.CountOf(day, minorsKeys...),
		})
	}

	for _, item := range lenient.ListOf(raw, recentKeys...) {
		scan := lenient.Object(item)
		if scan == nil {
			continue
		}
		snapshot.Recent = append(snapshot.Recent, Scan{
			At:     lenient.StringOf(scan, dateKeys...),
			Result: scanResult(scan),
			Adults: lenient.CountOf(scan, adultsKeys...),
			Minors: lenient.CountOf(scan, minorsKeys...),
		})
	}
	return snapshot
}

// scanResult reads a recent scan's outcome, which older backends
// report as a validity flag instead of a result string.
func scanResult(scan map[string]any) string {
	if text := lenient.StringOf(scan, resultKeys...); text != "" {
		return text
	}
	if flag, ok := lenient.First(scan, validityKeys...); ok {
		if lenient.Affirmative(flag) {
			return "VALIDO"
		}
		return "NO VALIDO"
	}
	return ""
}

func hasAny(m map[string]any, groups ...[]string) bool {
	for _, keys := range groups {
		if _, ok := lenient.First(m, keys...); ok {
			return true
		}
	}
	return false
}
