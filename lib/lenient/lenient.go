// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lenient coerces loosely typed JSON values.
//
// The Club backend has shipped several spellings and types for the
// same field over time: counts arrive as numbers, numeric strings or
// not at all; flags as booleans or as strings. The response adapters
// in lib/validation and lib/metrics read decoded JSON through these
// helpers so that each adapter states which keys it accepts and never
// fails on an unexpected shape.
//
// Values are expected to come from encoding/json, either with
// UseNumber (json.Number) or without (float64).
package lenient

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// First returns the value of the first key present in m with a
// non-nil value.
func First(m map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := m[key]; ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

// Number converts v to a finite float64. Numeric strings are parsed
// after trimming spaces. Returns false for anything else, including
// NaN and infinities.
func Number(v any) (float64, bool) {
	var f float64
	switch value := v.(type) {
	case float64:
		f = value
	case float32:
		f = float64(value)
	case int:
		f = float64(value)
	case int64:
		f = float64(value)
	case int32:
		f = float64(value)
	case uint64:
		f = float64(value)
	case json.Number:
		parsed, err := value.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Count converts v to a non-negative integer, truncating fractions.
// Missing, malformed, negative and non-finite values become 0.
func Count(v any) int {
	f, ok := Number(v)
	if !ok || f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// CountOf returns Count of the first present key in m.
func CountOf(m map[string]any, keys ...string) int {
	value, _ := First(m, keys...)
	return Count(value)
}

// String converts scalars to their text form. Strings are trimmed;
// numbers are formatted without exponent. Booleans, objects, lists
// and nil yield "".
func String(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	default:
		return ""
	}
}

// StringOf returns the first non-empty String among the keys of m.
func StringOf(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if text := String(m[key]); text != "" {
			return text
		}
	}
	return ""
}

// Affirmative reports whether v is an explicit yes: boolean true or
// the string "true" in any case. Numbers are not affirmative; a 1 in
// a validity field is too ambiguous to accept a discount on.
func Affirmative(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case string:
		return strings.EqualFold(strings.TrimSpace(value), "true")
	default:
		return false
	}
}

// Object returns v as a JSON object, or nil.
func Object(v any) map[string]any {
	object, _ := v.(map[string]any)
	return object
}

// ObjectOf returns the first key of m holding an object.
func ObjectOf(m map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if object := Object(m[key]); object != nil {
			return object
		}
	}
	return nil
}

// List returns v as a JSON array, or nil.
func List(v any) []any {
	list, _ := v.([]any)
	return list
}

// ListOf returns the first key of m holding an array.
func ListOf(m map[string]any, keys ...string) []any {
	for _, key := range keys {
		if list := List(m[key]); list != nil {
			return list
		}
	}
	return nil
}
