// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lpbme/club-validator/lib/backend"
	"github.com/lpbme/club-validator/lib/clock"
	"github.com/lpbme/club-validator/lib/validation"
)

var epoch = time.Date(2026, 6, 12, 9, 0, 0, 0, time.UTC)

func openTestJournal(t *testing.T) (*Journal, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	journal, err := Open(context.Background(), Config{
		Path:  filepath.Join(t.TempDir(), "journal.db"),
		Clock: fake,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := journal.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return journal, fake
}

func decodedBody(t *testing.T, raw string) map[string]any {
	t.Helper()
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	var body map[string]any
	if err := decoder.Decode(&body); err != nil {
		t.Fatalf("decoding %s: %v", raw, err)
	}
	return body
}

func validAttempt(t *testing.T, token string, at time.Time) validation.Attempt {
	return validation.Attempt{
		Token:      token,
		ResourceID: 42,
		Result: validation.Result{
			Outcome:      validation.Valid,
			VillageID:    "7",
			VillageName:  "Albarracín",
			ResourceName: "Museo",
			Adults:       2,
			Minors:       1,
			Discount:     15,
			HasDiscount:  true,
			HTTPStatus:   200,
			At:           at,
		},
		Response: &backend.Response{
			Status:    200,
			RequestID: "req-1",
			Body:      decodedBody(t, `{"valido":true,"pueblo":{"id":7,"nombre":"Albarracín"},"descuento":15}`),
		},
	}
}

func invalidAttempt(token string, at time.Time) validation.Attempt {
	return validation.Attempt{
		Token:      token,
		ResourceID: 42,
		Result: validation.Result{
			Outcome: validation.Invalid,
			Reason:  validation.ReasonMalformed,
			At:      at,
		},
	}
}

func TestRecordAndList(t *testing.T) {
	journal, _ := openTestJournal(t)
	ctx := context.Background()

	if err := journal.RecordAttempt(ctx, validAttempt(t, "LPBME:QR:abcdef1234", epoch)); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	entries, err := journal.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]

	if entry.ID == "" {
		t.Error("entry has no ID")
	}
	if !entry.RecordedAt.Equal(epoch) {
		t.Errorf("RecordedAt = %v, want %v", entry.RecordedAt, epoch)
	}
	if entry.Outcome != validation.Valid || entry.ResourceID != 42 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.VillageName != "Albarracín" || entry.Adults != 2 || entry.Minors != 1 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Discount == nil || *entry.Discount != 15 {
		t.Errorf("Discount = %v, want 15", entry.Discount)
	}
	if entry.RequestID != "req-1" || entry.HTTPStatus != 200 {
		t.Errorf("RequestID = %q HTTPStatus = %d", entry.RequestID, entry.HTTPStatus)
	}
	if entry.TokenDigest != TokenDigest("LPBME:QR:abcdef1234") {
		t.Errorf("TokenDigest = %q", entry.TokenDigest)
	}
	if strings.Contains(entry.TokenDigest, "abcdef") {
		t.Error("token digest contains the raw token")
	}
	if entry.Response["valido"] != true {
		t.Errorf("Response[valido] = %#v", entry.Response["valido"])
	}
	if entry.Response["descuento"] != int64(15) {
		t.Errorf("Response[descuento] = %#v, want int64(15)", entry.Response["descuento"])
	}
	village, ok := entry.Response["pueblo"].(map[string]any)
	if !ok || village["nombre"] != "Albarracín" {
		t.Errorf("Response[pueblo] = %#v", entry.Response["pueblo"])
	}
}

func TestRecordLocalRejection(t *testing.T) {
	journal, fake := openTestJournal(t)
	ctx := context.Background()

	// A zero Result.At falls back to the journal's clock.
	if err := journal.RecordAttempt(ctx, invalidAttempt("short", time.Time{})); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	entries, err := journal.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if !entry.RecordedAt.Equal(fake.Now()) {
		t.Errorf("RecordedAt = %v, want %v", entry.RecordedAt, fake.Now())
	}
	if entry.Discount != nil {
		t.Errorf("Discount = %v, want nil", *entry.Discount)
	}
	if entry.Response != nil {
		t.Errorf("Response = %#v, want nil", entry.Response)
	}
	if entry.Reason != validation.ReasonMalformed {
		t.Errorf("Reason = %q", entry.Reason)
	}
}

func TestListFilters(t *testing.T) {
	journal, _ := openTestJournal(t)
	ctx := context.Background()

	attempts := []validation.Attempt{
		validAttempt(t, "LPBME:QR:card-one", epoch),
		invalidAttempt("LPBME:QR:card-two", epoch.Add(time.Minute)),
		validAttempt(t, "LPBME:QR:card-one", epoch.Add(2*time.Minute)),
		{Token: "LPBME:QR:card-three", ResourceID: 42, Result: validation.Result{
			Outcome: validation.Error, Reason: validation.ReasonNetwork, At: epoch.Add(3 * time.Minute),
		}},
	}
	for _, attempt := range attempts {
		if err := journal.RecordAttempt(ctx, attempt); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []time.Time
	}{
		{"all newest first", Filter{}, []time.Time{
			epoch.Add(3 * time.Minute), epoch.Add(2 * time.Minute), epoch.Add(time.Minute), epoch,
		}},
		{"limit", Filter{Limit: 2}, []time.Time{epoch.Add(3 * time.Minute), epoch.Add(2 * time.Minute)}},
		{"outcome", Filter{Outcome: validation.Valid}, []time.Time{epoch.Add(2 * time.Minute), epoch}},
		{"since is inclusive", Filter{Since: epoch.Add(2 * time.Minute)}, []time.Time{
			epoch.Add(3 * time.Minute), epoch.Add(2 * time.Minute),
		}},
		{"until is exclusive", Filter{Until: epoch.Add(time.Minute)}, []time.Time{epoch}},
		{"token", Filter{TokenDigest: TokenDigest("LPBME:QR:card-one")}, []time.Time{
			epoch.Add(2 * time.Minute), epoch,
		}},
		{"nothing matches", Filter{Since: epoch.Add(time.Hour)}, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			entries, err := journal.List(ctx, test.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != len(test.want) {
				t.Fatalf("got %d entries, want %d", len(entries), len(test.want))
			}
			for i, entry := range entries {
				if !entry.RecordedAt.Equal(test.want[i]) {
					t.Errorf("entry %d at %v, want %v", i, entry.RecordedAt, test.want[i])
				}
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	journal, _ := openTestJournal(t)
	ctx := context.Background()

	for _, attempt := range []validation.Attempt{
		validAttempt(t, "LPBME:QR:card-one", epoch),
		validAttempt(t, "LPBME:QR:card-two", epoch.Add(time.Minute)),
		invalidAttempt("bad", epoch.Add(2*time.Minute)),
		{Token: "LPBME:QR:card-three", Result: validation.Result{
			Outcome: validation.Error, Reason: validation.ReasonServer, At: epoch.Add(3 * time.Minute),
			Adults: 9,
		}},
	} {
		if err := journal.RecordAttempt(ctx, attempt); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	summary, err := journal.Summarize(ctx, Filter{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want := Summary{Total: 4, Valid: 2, Invalid: 1, Error: 1, Adults: 4, Minors: 2}
	if summary != want {
		t.Errorf("Summarize = %+v, want %+v", summary, want)
	}

	entries, err := journal.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if tally := Tally(entries); tally != want {
		t.Errorf("Tally = %+v, want %+v", tally, want)
	}

	summary, err = journal.Summarize(ctx, Filter{Since: epoch.Add(time.Minute), Limit: 1})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want = Summary{Total: 3, Valid: 1, Invalid: 1, Error: 1, Adults: 2, Minors: 1}
	if summary != want {
		t.Errorf("Summarize since = %+v, want %+v", summary, want)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	first, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.RecordAttempt(ctx, invalidAttempt("x", epoch)); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	entries, err := second.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries after reopen, want 1", len(entries))
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty Path")
	}
}
