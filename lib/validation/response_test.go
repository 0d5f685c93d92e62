// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validation

import (
	"errors"
	"testing"

	"github.com/lpbme/club-validator/lib/backend"
	"github.com/lpbme/club-validator/lib/netutil"
)

func response(t *testing.T, status int, body string) *backend.Response {
	t.Helper()
	object, _ := netutil.DecodeObject([]byte(body))
	return &backend.Response{Status: status, Body: object, Raw: []byte(body)}
}

func TestInterpretOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantResult Outcome
		wantReason string
	}{
		{"valido true", 200, `{"valido":true}`, Valid, ""},
		{"created", 201, `{"valid":true}`, Valid, ""},
		{"ok flag", 200, `{"ok":true}`, Valid, ""},
		{"success string", 200, `{"success":"true"}`, Valid, ""},
		{"result code", 200, `{"resultado":"VALIDO"}`, Valid, ""},
		{"lowercase code", 200, `{"code":"ok"}`, Valid, ""},
		{"flag outranks code", 200, `{"valido":false,"resultado":"VALIDO"}`, Invalid, "VALIDO"},
		{"numeric flag is not affirmative", 200, `{"valido":1}`, Invalid, ReasonInvalid},
		{"motivo", 200, `{"valido":false,"motivo":"QR ya usado hoy"}`, Invalid, "QR ya usado hoy"},
		{"reason outranks message", 200, `{"valid":false,"message":"m","reason":"r"}`, Invalid, "r"},
		{"message", 200, `{"valid":false,"mensaje":"QR caducado"}`, Invalid, "QR caducado"},
		{"error field", 200, `{"error":"token revoked"}`, Invalid, "token revoked"},
		{"result code reason", 200, `{"resultado":"CADUCADO"}`, Invalid, "CADUCADO"},
		{"empty object", 200, `{}`, Invalid, ReasonInvalid},
		{"non-json success", 200, `OK`, Invalid, ReasonInvalid},
		{"server error", 500, `{"valido":true}`, Error, ReasonServer},
		{"other 2xx", 204, ``, Error, ReasonServer},
		{"not found", 404, `{"motivo":"no"}`, Error, ReasonServer},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Interpret(response(t, test.status, test.body), nil)
			if result.Outcome != test.wantResult {
				t.Errorf("outcome = %s, want %s", result.Outcome, test.wantResult)
			}
			if result.Reason != test.wantReason {
				t.Errorf("reason = %q, want %q", result.Reason, test.wantReason)
			}
			if result.HTTPStatus != test.status {
				t.Errorf("status = %d, want %d", result.HTTPStatus, test.status)
			}
		})
	}
}

func TestInterpretTransportError(t *testing.T) {
	result := Interpret(nil, &backend.TransportError{Method: "POST", Path: "/scan", Err: errors.New("refused")})
	if result.Outcome != Error || result.Reason != ReasonNetwork || result.HTTPStatus != 0 {
		t.Fatalf("result = %+v", result)
	}
}

func TestInterpretOptionalFields(t *testing.T) {
	result := Interpret(response(t, 200, `{
		"valido": true,
		"puebloId": 17,
		"puebloNombre": "Albarracín",
		"recursoNombre": "Museo de Albarracín",
		"adultosUsados": "2",
		"menoresAplicados": 1,
		"descuento": 12.5
	}`), nil)

	if result.VillageID != "17" || result.VillageName != "Albarracín" || result.ResourceName != "Museo de Albarracín" {
		t.Errorf("names = %q %q %q", result.VillageID, result.VillageName, result.ResourceName)
	}
	if result.Adults != 2 || result.Minors != 1 {
		t.Errorf("companions = %d/%d", result.Adults, result.Minors)
	}
	if !result.HasDiscount || result.DiscountText() != "12.5%" {
		t.Errorf("discount = %v %q", result.HasDiscount, result.DiscountText())
	}
}

func TestInterpretIgnoresNegativeDiscount(t *testing.T) {
	result := Interpret(response(t, 200, `{"valido":true,"descuentoPorcentaje":-5}`), nil)
	if result.HasDiscount || result.DiscountText() != "" {
		t.Errorf("negative discount accepted: %+v", result)
	}
}
