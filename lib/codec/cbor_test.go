// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

type sampleEntry struct {
	ID       string    `cbor:"id"`
	Outcome  string    `cbor:"outcome"`
	Reason   string    `cbor:"reason,omitempty"`
	Adults   int       `cbor:"adults"`
	Recorded time.Time `cbor:"recorded"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleEntry{
		ID:       "7f4c",
		Outcome:  "VALID",
		Adults:   2,
		Recorded: time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC),
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEntry
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Recorded.Equal(original.Recorded) {
		t.Errorf("Recorded = %v, want %v", decoded.Recorded, original.Recorded)
	}
	decoded.Recorded = original.Recorded
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	body := map[string]any{"valido": true, "pueblo": "Albarracín", "descuento": int64(15)}

	first, err := Marshal(body)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(body)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestEncoderDecoderSequence(t *testing.T) {
	entries := []sampleEntry{
		{ID: "a", Outcome: "VALID", Adults: 1},
		{ID: "b", Outcome: "INVALID", Reason: "invalid code", Adults: 1},
		{ID: "c", Outcome: "ERROR", Reason: "network error"},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range entries {
		var got sampleEntry
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode entry %d: %v", i, err)
		}
		if got.ID != want.ID || got.Outcome != want.Outcome || got.Reason != want.Reason {
			t.Errorf("entry %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestAnyTargetsDecodeToStringMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"hoy": map[string]any{"total": int64(3)}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	today, ok := outer["hoy"].(map[string]any)
	if !ok {
		t.Fatalf("nested value is %T, want map[string]any", outer["hoy"])
	}
	if total, ok := today["total"].(int64); !ok || total != 3 {
		t.Errorf("total = %#v, want int64(3)", today["total"])
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var entry sampleEntry
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &entry); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestFromJSON(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(
		`{"valido":true,"descuento":15,"ratio":0.5,"huge":123456789012345678901234,"items":[1,"x"]}`))
	decoder.UseNumber()
	var body map[string]any
	if err := decoder.Decode(&body); err != nil {
		t.Fatalf("json decode: %v", err)
	}

	plain, ok := FromJSON(body).(map[string]any)
	if !ok {
		t.Fatalf("FromJSON returned %T", FromJSON(body))
	}
	if got, ok := plain["descuento"].(int64); !ok || got != 15 {
		t.Errorf("descuento = %#v, want int64(15)", plain["descuento"])
	}
	if got, ok := plain["ratio"].(float64); !ok || got != 0.5 {
		t.Errorf("ratio = %#v, want 0.5", plain["ratio"])
	}
	if _, ok := plain["huge"].(float64); !ok {
		t.Errorf("huge = %#v, want float64", plain["huge"])
	}
	items, ok := plain["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("items = %#v", plain["items"])
	}
	if items[0] != int64(1) || items[1] != "x" {
		t.Errorf("items = %#v", items)
	}
	if plain["valido"] != true {
		t.Errorf("valido = %#v", plain["valido"])
	}

	// The source map is left untouched.
	if _, ok := body["descuento"].(json.Number); !ok {
		t.Errorf("FromJSON modified its input: %#v", body["descuento"])
	}

	if _, err := Marshal(plain); err != nil {
		t.Errorf("Marshal converted body: %v", err)
	}
}

func BenchmarkMarshal(b *testing.B) {
	entry := sampleEntry{ID: "7f4c", Outcome: "VALID", Adults: 2}

	b.ReportAllocs()
	for b.Loop() {
		Marshal(entry)
	}
}
