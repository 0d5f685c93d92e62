// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validation

import (
	"strings"

	"github.com/lpbme/club-validator/lib/backend"
	"github.com/lpbme/club-validator/lib/lenient"
)

// Field names the scan endpoint has used, in priority order.
var (
	validityFlagKeys = []string{"valido", "valid", "ok", "success"}
	resultCodeKeys   = []string{"resultado", "result", "codigo", "code"}
	reasonKeys       = []string{"motivo", "reason"}
	messageKeys      = []string{"mensaje", "message", "error"}

	villageIDKeys    = []string{"puebloId"}
	villageNameKeys  = []string{"puebloNombre"}
	resourceNameKeys = []string{"recursoNombre"}
	adultsKeys       = []string{"adultosAplicados", "adultosUsados"}
	minorsKeys       = []string{"menoresAplicados", "menoresUsados"}
	discountKeys     = []string{"descuentoPorcentaje", "descuento"}
)

// affirmativeCodes are result codes meaning the scan was accepted.
var affirmativeCodes = map[string]bool{
	"VALIDO":  true,
	"VALID":   true,
	"OK":      true,
	"SUCCESS": true,
}

// Interpret classifies the outcome of one scan submission. err is the
// transport error from the submitter, if any. At is left zero.
func Interpret(response *backend.Response, err error) Result {
	if err != nil || response == nil {
		return Result{Outcome: Error, Reason: ReasonNetwork}
	}
	if !response.Success() {
		return Result{Outcome: Error, Reason: ReasonServer, HTTPStatus: response.Status}
	}

	body := response.Body
	if body == nil {
		body = map[string]any{}
	}
	result := Result{
		Outcome:      Invalid,
		HTTPStatus:   response.Status,
		VillageID:    lenient.StringOf(body, villageIDKeys...),
		VillageName:  lenient.StringOf(body, villageNameKeys...),
		ResourceName: lenient.StringOf(body, resourceNameKeys...),
		Adults:       lenient.CountOf(body, adultsKeys...),
		Minors:       lenient.CountOf(body, minorsKeys...),
	}
	if value, ok := lenient.First(body, discountKeys...); ok {
		if discount, ok := lenient.Number(value); ok && discount >= 0 {
			result.Discount = discount
			result.HasDiscount = true
		}
	}

	if affirmative(body) {
		result.Outcome = Valid
		return result
	}
	result.Reason = reason(body)
	return result
}

// affirmative decides validity. The first validity flag present
// decides; result codes are consulted only when no flag is present.
func affirmative(body map[string]any) bool {
	if flag, ok := lenient.First(body, validityFlagKeys...); ok {
		return lenient.Affirmative(flag)
	}
	code := strings.ToUpper(lenient.StringOf(body, resultCodeKeys...))
	return affirmativeCodes[code]
}

// reason picks the operator-facing explanation of an invalid scan.
func reason(body map[string]any) string {
	for _, keys := range [][]string{reasonKeys, messageKeys, resultCodeKeys} {
		if text := lenient.StringOf(body, keys...); text != "" {
			return text
		}
	}
	return ReasonInvalid
}
