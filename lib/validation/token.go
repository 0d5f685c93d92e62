// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validation

import (
	"strings"
	"unicode/utf8"
)

// DefaultTokenPrefix is the scheme printed in front of Club tokens.
const DefaultTokenPrefix = "LPBME:QR:"

// DefaultMinTokenLength is the shortest token worth sending.
const DefaultMinTokenLength = 10

// NormalizeToken trims surrounding whitespace and strips prefix when
// present. The prefix match is exact; "lpbme:qr:" is a different code.
func NormalizeToken(raw, prefix string) string {
	token := strings.TrimSpace(raw)
	if prefix != "" {
		token = strings.TrimPrefix(token, prefix)
	}
	return strings.TrimSpace(token)
}

// WellFormed reports whether token has at least minLength characters.
func WellFormed(token string, minLength int) bool {
	return token != "" && utf8.RuneCountInString(token) >= minLength
}
