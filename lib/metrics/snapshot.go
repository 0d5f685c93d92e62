// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

// Today holds the counters for the current day.
type Today struct {
	Total  int `json:"total"`
	OK     int `json:"ok"`
	NoOK   int `json:"noOk"`
	Adults int `json:"adultos"`
	Minors int `json:"menores"`
}

// Day is one entry of the per-day breakdown.
type Day struct {
	Date   string `json:"fecha"`
	Total  int    `json:"total"`
	OK     int    `json:"ok"`
	Adults int    `json:"adultos"`
	Minors int    `json:"menores"`
}

// Scan is one recent individual scan.
type Scan struct {
	At     string `json:"fecha"`
	Result string `json:"resultado"`
	Adults int    `json:"adultos"`
	Minors int    `json:"menores"`
}

// Snapshot is the canonical metrics shape. Days and Recent are never
// nil, so they encode as [] rather than null.
type Snapshot struct {
	Today  Today  `json:"hoy"`
	Days   []Day  `json:"ultimosDias"`
	Recent []Scan `json:"ultimosEscaneos"`
}

// Empty returns the zero snapshot with non-nil lists.
func Empty() Snapshot {
	return Snapshot{Days: []Day{}, Recent: []Scan{}}
}
