// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package integration_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/lpbme/club-validator/lib/backend"
	"github.com/lpbme/club-validator/lib/clock"
	"github.com/lpbme/club-validator/lib/config"
	"github.com/lpbme/club-validator/lib/journal"
	"github.com/lpbme/club-validator/lib/metrics"
	"github.com/lpbme/club-validator/lib/mockbackend"
	"github.com/lpbme/club-validator/lib/scanner"
	"github.com/lpbme/club-validator/lib/service"
	"github.com/lpbme/club-validator/lib/validation"
)

func TestValidPassIsAcceptedOnce(t *testing.T) {
	s := newStack(t)
	s.start(t)

	s.scan(t, "LPBME:QR:abcdef1234567890")
	result := s.result(t)
	if result.Outcome != validation.Valid {
		t.Fatalf("outcome = %s (%s), want VALID", result.Outcome, result.Reason)
	}
	if result.VillageName != "Albarracín" {
		t.Errorf("village = %q, want Albarracín", result.VillageName)
	}
	if result.DiscountText() != "15%" {
		t.Errorf("discount = %q, want 15%%", result.DiscountText())
	}
	if result.Adults != 2 || result.Minors != 0 {
		t.Errorf("companions = %d+%d, want 2+0", result.Adults, result.Minors)
	}
	if s.kiosk.Scanner.Running() {
		t.Error("reader held while the result is on screen")
	}

	s.closeWindow(t)
	if !s.kiosk.Scanner.Running() {
		t.Error("reader not reacquired after the display window")
	}

	// The completed cycle refreshes both scopes; the village scope is
	// first fetched then, since the result suppressed it until now.
	view := s.waitForMetrics(t, "village scope and today's scan", func(view metrics.View) bool {
		return view.Village != nil && view.Village.Loaded && view.Resource.Snapshot.Today.Total == 1
	})
	if view.Village.Scope.ID != "7" {
		t.Errorf("village scope = %s, want village:7", view.Village.Scope)
	}
	if today := view.Resource.Snapshot.Today; today.OK != 1 || today.Adults != 2 {
		t.Errorf("resource today = %+v, want 1 ok with 2 adults", today)
	}

	// Past the dedup window the same pass is rejected by the backend.
	s.fake.Advance(s.config.Validator.DedupWindow)
	s.scan(t, "LPBME:QR:abcdef1234567890")
	result = s.result(t)
	if result.Outcome != validation.Invalid || result.Reason != mockbackend.ReasonUsed {
		t.Errorf("second scan = %s %q, want INVALID %q", result.Outcome, result.Reason, mockbackend.ReasonUsed)
	}
	s.closeWindow(t)

	entries := s.journalEntries(t)
	if len(entries) != 2 {
		t.Fatalf("journal has %d entries, want 2", len(entries))
	}
	newest, oldest := entries[0], entries[1]
	if oldest.Outcome != validation.Valid || newest.Outcome != validation.Invalid {
		t.Errorf("journal outcomes = %s, %s; want VALID then INVALID", oldest.Outcome, newest.Outcome)
	}
	if oldest.TokenDigest != journal.TokenDigest("abcdef1234567890") {
		t.Errorf("token digest = %s, want digest of the normalized token", oldest.TokenDigest)
	}
	if oldest.Discount == nil || *oldest.Discount != 15 {
		t.Errorf("journal discount = %v, want 15", oldest.Discount)
	}
	if oldest.RequestID == "" {
		t.Error("journal entry lacks the request id")
	}
}

func TestMalformedPayloadNeverReachesBackend(t *testing.T) {
	s := newStack(t)
	s.start(t)

	s.scan(t, "xy")
	result := s.result(t)
	if result.Outcome != validation.Invalid || result.Reason != validation.ReasonMalformed {
		t.Errorf("result = %s %q, want INVALID %q", result.Outcome, result.Reason, validation.ReasonMalformed)
	}
	s.closeWindow(t)

	if scans := s.backend.Scans(); scans != 0 {
		t.Errorf("backend received %d scans, want 0", scans)
	}
	entries := s.journalEntries(t)
	if len(entries) != 1 || entries[0].HTTPStatus != 0 || entries[0].Response != nil {
		t.Errorf("journal entries = %+v, want one local rejection", entries)
	}
}

func TestServerErrorThenScanningResumes(t *testing.T) {
	s := newStack(t)
	s.start(t)

	s.scan(t, "LPBME:QR:servererror00000")
	result := s.result(t)
	if result.Outcome != validation.Error || result.Reason != validation.ReasonServer {
		t.Fatalf("result = %s %q, want ERROR %q", result.Outcome, result.Reason, validation.ReasonServer)
	}
	if result.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", result.HTTPStatus)
	}

	s.closeWindow(t)
	if !s.kiosk.Scanner.Running() {
		t.Error("reader not reacquired after a server error")
	}

	// A good pass right after goes through.
	s.scan(t, "LPBME:QR:0123456789abcdef")
	if result := s.result(t); result.Outcome != validation.Valid {
		t.Errorf("next scan = %s %q, want VALID", result.Outcome, result.Reason)
	}
}

func TestUnknownAndExpiredPasses(t *testing.T) {
	s := newStack(t)
	s.start(t)

	tests := []struct {
		payload string
		reason  string
	}{
		{"LPBME:QR:nobodyhasthisone", mockbackend.ReasonUnknown},
		{"LPBME:QR:expired000000000", mockbackend.ReasonExpired},
	}
	for _, test := range tests {
		s.scan(t, test.payload)
		result := s.result(t)
		if result.Outcome != validation.Invalid || result.Reason != test.reason {
			t.Errorf("%s: result = %s %q, want INVALID %q", test.payload, result.Outcome, result.Reason, test.reason)
		}
		s.closeWindow(t)
	}
}

func TestCompanionsReachBackend(t *testing.T) {
	s := newStack(t)
	s.start(t)

	if err := s.kiosk.Validator.SetCompanions(1, 3); err != nil {
		t.Fatalf("SetCompanions: %v", err)
	}
	s.scan(t, "LPBME:QR:abcdef1234567890")
	result := s.result(t)
	if result.Adults != 1 || result.Minors != 3 {
		t.Errorf("applied companions = %d+%d, want 1+3", result.Adults, result.Minors)
	}
}

func TestWrongTokenIsServerError(t *testing.T) {
	s := newStack(t, func(cfg *config.Config) {
		cfg.Backend.Token = "stolen"
	})
	if err := s.kiosk.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	view := s.waitForMetrics(t, "unauthorized fetch", func(view metrics.View) bool {
		return view.Resource.Err != nil
	})
	var statusErr *backend.StatusError
	if !errors.As(view.Resource.Err, &statusErr) || statusErr.Status != http.StatusUnauthorized {
		t.Errorf("metrics error = %v, want a 401 status error", view.Resource.Err)
	}

	s.scan(t, "LPBME:QR:abcdef1234567890")
	if result := s.result(t); result.Outcome != validation.Error || result.Reason != validation.ReasonServer {
		t.Errorf("result = %s %q, want ERROR %q", result.Outcome, result.Reason, validation.ReasonServer)
	}
}

func TestUnavailableReaderHalts(t *testing.T) {
	s := newStack(t, func(cfg *config.Config) {
		cfg.Scanner.Device = filepath.Join(t.TempDir(), "no-such-scanner")
	})

	err := s.kiosk.Start(context.Background())
	if !errors.Is(err, scanner.ErrCameraUnavailable) {
		t.Fatalf("Start = %v, want ErrCameraUnavailable", err)
	}
	state := s.waitForPhase(t, validation.PhaseHalted)
	if state.Result == nil || state.Result.Outcome != validation.Error || state.Result.Reason != validation.ReasonCamera {
		t.Errorf("halted result = %+v, want ERROR %q", state.Result, validation.ReasonCamera)
	}

	// The dashboard keeps working while halted.
	s.waitForMetrics(t, "resource fetch while halted", func(view metrics.View) bool {
		return view.Resource.Loaded
	})
}

func TestCloseReleasesReader(t *testing.T) {
	s := newStack(t)
	s.start(t)
	if !s.feed.Active() {
		t.Fatal("feed not held after Start")
	}

	if err := s.kiosk.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.feed.Active() {
		t.Error("reader still held after Close")
	}
	if s.feed.Feed("LPBME:QR:abcdef1234567890") {
		t.Error("feed accepted a payload after Close")
	}
	if err := s.kiosk.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

// The metrics body of scenario E omits every counter but two; the
// client and poller turn it into a complete snapshot.
func TestSparseMetricsBodyNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/validator/metrics" || r.URL.Query().Get("recursoId") != "42" {
			http.NotFound(w, r)
			return
		}
		service.WriteJSON(w, http.StatusOK, map[string]any{"hoy": map[string]any{"total": 5, "ok": 3}})
	}))
	t.Cleanup(server.Close)

	client, err := backend.New(backend.Config{BaseURL: server.URL, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}
	poller, err := metrics.New(metrics.Config{
		ResourceID: "42",
		Fetcher:    client,
		Clock:      clock.Fake(epoch),
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("metrics.New: %v", err)
	}
	if !poller.Refresh(context.Background()) {
		t.Fatal("Refresh suppressed")
	}

	view := poller.View().Resource
	if view.Err != nil {
		t.Fatalf("fetch error: %v", view.Err)
	}
	want := metrics.Today{Total: 5, OK: 3}
	if view.Snapshot.Today != want {
		t.Errorf("today = %+v, want %+v", view.Snapshot.Today, want)
	}
	if view.Snapshot.Days == nil || len(view.Snapshot.Days) != 0 {
		t.Errorf("days = %#v, want empty non-nil", view.Snapshot.Days)
	}
	if view.Snapshot.Recent == nil || len(view.Snapshot.Recent) != 0 {
		t.Errorf("recent = %#v, want empty non-nil", view.Snapshot.Recent)
	}
}

func TestLegacyMetricKeysNormalize(t *testing.T) {
	fake := clock.Fake(epoch)
	backendServer, err := mockbackend.New(mockbackend.Config{
		Fixtures:   mockbackend.DefaultFixtures(),
		LegacyKeys: true,
		Location:   epoch.Location(),
		Clock:      fake,
	})
	if err != nil {
		t.Fatalf("mockbackend.New: %v", err)
	}
	server := httptest.NewServer(backendServer.Handler())
	t.Cleanup(server.Close)

	client, err := backend.New(backend.Config{BaseURL: server.URL, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}
	ctx := context.Background()
	for _, token := range []string{"abcdef1234567890", "abcdef1234567890", "nobodyhasthisone"} {
		response, err := client.SubmitScan(ctx, backend.ScanRequest{
			QRToken: token, RecursoID: 42, AdultosUsados: 2, MenoresUsados: 1,
		})
		if err != nil || !response.Success() {
			t.Fatalf("SubmitScan(%s) = %v, %v", token, response, err)
		}
	}

	raw, err := client.Metrics(ctx, backend.Scope{Kind: backend.ScopeResource, ID: "42"}, 7)
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	snapshot := metrics.Normalize(raw)
	want := metrics.Today{Total: 3, OK: 1, NoOK: 2, Adults: 2, Minors: 1}
	if snapshot.Today != want {
		t.Errorf("today = %+v, want %+v", snapshot.Today, want)
	}
	if len(snapshot.Days) != 7 {
		t.Errorf("days = %d, want 7", len(snapshot.Days))
	}
	if len(snapshot.Recent) != 3 || snapshot.Recent[0].Result != "NO VALIDO" || snapshot.Recent[2].Result != "VALIDO" {
		t.Errorf("recent = %+v, want newest rejection first", snapshot.Recent)
	}
}
