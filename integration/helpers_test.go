// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package integration_test runs the assembled validator end to end:
// the real backend client talks HTTP to the in-memory Club backend,
// payloads enter through a feed source, results land in a SQLite
// journal. Every timer runs on a fake clock; only the HTTP round
// trips use real goroutines and sockets.
package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/lpbme/club-validator/lib/clock"
	"github.com/lpbme/club-validator/lib/config"
	"github.com/lpbme/club-validator/lib/journal"
	"github.com/lpbme/club-validator/lib/kiosk"
	"github.com/lpbme/club-validator/lib/metrics"
	"github.com/lpbme/club-validator/lib/mockbackend"
	"github.com/lpbme/club-validator/lib/scanner"
	"github.com/lpbme/club-validator/lib/service"
	"github.com/lpbme/club-validator/lib/testutil"
	"github.com/lpbme/club-validator/lib/tone"
	"github.com/lpbme/club-validator/lib/validation"
)

// wait bounds every blocking step. Generous: HTTP round trips run on
// real sockets under a possibly loaded CI machine.
const wait = 10 * time.Second

var epoch = time.Date(2026, 6, 10, 10, 0, 0, 0, time.UTC)

type recordingPlayer struct{ played chan string }

func (p recordingPlayer) Play(_ context.Context, t tone.Tone) error {
	p.played <- t.Name
	return nil
}

type stack struct {
	fake        *clock.FakeClock
	backend     *mockbackend.Server
	server      *httptest.Server
	config      *config.Config
	kiosk       *kiosk.Kiosk
	feed        *scanner.FeedSource
	player      recordingPlayer
	journalPath string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newStack starts a mock backend and a kiosk validating resource 42
// with two adults per pass. mutate adjusts the configuration before
// assembly.
func newStack(t *testing.T, mutate ...func(*config.Config)) *stack {
	t.Helper()
	s := &stack{
		fake:   clock.Fake(epoch),
		player: recordingPlayer{played: make(chan string, 16)},
	}

	backend, err := mockbackend.New(mockbackend.Config{
		Fixtures: mockbackend.DefaultFixtures(),
		Location: time.UTC,
		Clock:    s.fake,
		Logger:   discardLogger(),
	})
	if err != nil {
		t.Fatalf("mockbackend.New: %v", err)
	}
	s.backend = backend
	s.server = httptest.NewServer(service.RequireBearer("kiosk-token",
		service.LogRequests(discardLogger(), s.fake, backend.Handler())))
	t.Cleanup(s.server.Close)

	cfg := config.Default()
	cfg.Backend.BaseURL = s.server.URL
	cfg.Backend.Token = "kiosk-token"
	cfg.Validator.ResourceID = 42
	cfg.Validator.Adults = 2
	cfg.Tone.Enabled = false
	cfg.WakeLock.Command = nil
	s.journalPath = filepath.Join(t.TempDir(), "journal.db")
	cfg.Journal.Path = s.journalPath
	for _, fn := range mutate {
		fn(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test configuration: %v", err)
	}
	s.config = cfg

	s.feed = scanner.NewFeedSource()
	options := kiosk.Options{
		Config: cfg,
		Player: s.player,
		Clock:  s.fake,
		Logger: discardLogger(),
	}
	if cfg.Scanner.Device == "" {
		options.Source = s.feed
	}
	k, err := kiosk.Assemble(context.Background(), options)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	s.kiosk = k
	t.Cleanup(func() { k.Close() })
	return s
}

// start starts the kiosk and waits for the first resource metrics.
func (s *stack) start(t *testing.T) {
	t.Helper()
	if err := s.kiosk.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.waitForMetrics(t, "first resource fetch", func(view metrics.View) bool {
		return view.Resource.Loaded
	})
}

// scan feeds one payload and fires the next frame.
func (s *stack) scan(t *testing.T, payload string) {
	t.Helper()
	if !s.feed.Feed(payload) {
		t.Fatalf("feed rejected %q: reader not held", payload)
	}
	s.fake.Advance(scanner.Settings{FrameRate: s.config.Scanner.FrameRate}.FrameInterval())
}

// result waits for the result on screen and its tone. The display
// window is armed before the tone plays.
func (s *stack) result(t *testing.T) validation.Result {
	t.Helper()
	state := s.waitForPhase(t, validation.PhaseShowingResult)
	testutil.RequireReceive(t, s.player.played, wait, "waiting for the result tone")
	return *state.Result
}

// closeWindow ends the display window and waits for scanning to
// resume.
func (s *stack) closeWindow(t *testing.T) {
	t.Helper()
	s.fake.Advance(s.config.Validator.DisplayWindow)
	s.waitForPhase(t, validation.PhaseScanning)
}

func (s *stack) waitForPhase(t *testing.T, phase validation.Phase) validation.State {
	t.Helper()
	for {
		state := s.kiosk.Validator.State()
		if state.Phase == phase {
			return state
		}
		testutil.RequireReceive(t, s.kiosk.Validator.Updates(), wait,
			"waiting for phase %s (at %s)", phase, state.Phase)
	}
}

func (s *stack) waitForMetrics(t *testing.T, what string, ready func(metrics.View) bool) metrics.View {
	t.Helper()
	for {
		view := s.kiosk.Metrics.View()
		if ready(view) {
			return view
		}
		testutil.RequireReceive(t, s.kiosk.Metrics.Updates(), wait, "waiting for metrics: %s", what)
	}
}

// journalEntries closes the kiosk, which drains pending recordings,
// and reads the journal back.
func (s *stack) journalEntries(t *testing.T) []journal.Entry {
	t.Helper()
	if err := s.kiosk.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	ctx := context.Background()
	scanJournal, err := journal.Open(ctx, journal.Config{Path: s.journalPath})
	if err != nil {
		t.Fatalf("reopening journal: %v", err)
	}
	defer scanJournal.Close()
	entries, err := scanJournal.List(ctx, journal.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return entries
}
