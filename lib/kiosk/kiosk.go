// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kiosk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/lpbme/club-validator/lib/backend"
	"github.com/lpbme/club-validator/lib/clock"
	"github.com/lpbme/club-validator/lib/config"
	"github.com/lpbme/club-validator/lib/journal"
	"github.com/lpbme/club-validator/lib/metrics"
	"github.com/lpbme/club-validator/lib/scanner"
	"github.com/lpbme/club-validator/lib/tone"
	"github.com/lpbme/club-validator/lib/validation"
	"github.com/lpbme/club-validator/lib/wakelock"
)

// Options configures Assemble. Config is required and should already
// be validated.
type Options struct {
	Config *config.Config

	// Source overrides the reader chosen from Config.Scanner.Device:
	// a DeviceSource when a device is configured, otherwise a
	// FeedSource exposed as Kiosk.Feed.
	Source scanner.Source

	// Player overrides the tone player chosen from Config.Tone.
	Player tone.Player
	// Bell receives terminal bells when tones are enabled without a
	// player command. Nil means standard error.
	Bell io.Writer

	// HTTPClient is passed to the backend client.
	HTTPClient *http.Client

	Clock  clock.Clock
	Logger *slog.Logger
}

// Kiosk is an assembled validator.
type Kiosk struct {
	Client    *backend.Client
	Scanner   *scanner.Controller
	Validator *validation.Validator
	Metrics   *metrics.Poller

	// Journal is nil when disabled or when it could not be opened.
	Journal *journal.Journal
	// WakeLock is nil when no inhibitor command is configured.
	WakeLock *wakelock.Inhibitor
	// Feed is set when payloads are pushed by the caller rather than
	// read from a device.
	Feed *scanner.FeedSource

	logger *slog.Logger

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	pollerDone chan struct{}
	closed     bool
}

// Assemble constructs every component and wires them together.
// Nothing runs until Start. A journal that cannot be opened is logged
// and skipped: validation never depends on local bookkeeping.
func Assemble(ctx context.Context, options Options) (*Kiosk, error) {
	cfg := options.Config
	if cfg == nil {
		return nil, errors.New("kiosk: Config is required")
	}
	c := options.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := backend.New(backend.Config{
		BaseURL:    cfg.Backend.BaseURL,
		Token:      cfg.Backend.Token,
		Timeout:    cfg.Backend.Timeout,
		UserAgent:  cfg.Backend.UserAgent,
		HTTPClient: options.HTTPClient,
		Logger:     logger.With("component", "backend"),
	})
	if err != nil {
		return nil, fmt.Errorf("kiosk: %w", err)
	}

	k := &Kiosk{Client: client, logger: logger}

	if cfg.Journal.Path != "" {
		scanJournal, err := journal.Open(ctx, journal.Config{
			Path:   cfg.Journal.Path,
			Clock:  c,
			Logger: logger.With("component", "journal"),
		})
		if err != nil {
			logger.Warn("scan journal unavailable, continuing without it",
				"path", cfg.Journal.Path, "error", err)
		} else {
			k.Journal = scanJournal
		}
	}

	source := options.Source
	if source == nil {
		if cfg.Scanner.Device != "" {
			source = scanner.DeviceSource{Path: cfg.Scanner.Device}
		} else {
			source = scanner.NewFeedSource()
		}
	}
	switch feed := source.(type) {
	case *scanner.FeedSource:
		k.Feed = feed
	case *scanner.ReaderSource:
		k.Feed = feed.FeedSource
	}

	// The scanner and validator refer to each other through callbacks;
	// the validator is assigned before the reader is started.
	var validator *validation.Validator
	controller, err := scanner.New(scanner.Config{
		Source:      source,
		Settings:    scanner.Settings{FrameRate: cfg.Scanner.FrameRate},
		DedupWindow: cfg.Validator.DedupWindow,
		Clock:       c,
		Logger:      logger.With("component", "scanner"),
		OnDecode: func(event scanner.Event) {
			validator.HandleScan(event)
		},
		OnFailure: func(err error) {
			go validator.Halt(err)
		},
	})
	if err != nil {
		k.closeJournal()
		return nil, fmt.Errorf("kiosk: %w", err)
	}
	k.Scanner = controller

	poller, err := metrics.New(metrics.Config{
		ResourceID: strconv.FormatInt(cfg.Validator.ResourceID, 10),
		Interval:   cfg.Metrics.Interval,
		Days:       cfg.Metrics.Days,
		Fetcher:    client,
		Suppressed: func() bool { return validator.Suppressed() },
		Clock:      c,
		Logger:     logger.With("component", "metrics"),
	})
	if err != nil {
		k.closeJournal()
		return nil, fmt.Errorf("kiosk: %w", err)
	}
	k.Metrics = poller

	validatorConfig := validation.Config{
		ResourceID:     cfg.Validator.ResourceID,
		Adults:         cfg.Validator.Adults,
		Minors:         cfg.Validator.Minors,
		TokenPrefix:    cfg.Validator.TokenPrefix,
		MinTokenLength: cfg.Validator.MinTokenLength,
		DisplayWindow:  cfg.Validator.DisplayWindow,
		Submitter:      client,
		Scanner:        controller,
		Player:         choosePlayer(cfg.Tone, options),
		OnVillage:      poller.SetVillage,
		OnCycleComplete: func() {
			k.refresh()
		},
		Clock:  c,
		Logger: logger.With("component", "validator"),
	}
	// A nil *Journal stored in the interface would not compare nil.
	if k.Journal != nil {
		validatorConfig.Recorder = k.Journal
	}
	validator, err = validation.New(validatorConfig)
	if err != nil {
		k.closeJournal()
		return nil, fmt.Errorf("kiosk: %w", err)
	}
	k.Validator = validator

	if len(cfg.WakeLock.Command) > 0 {
		k.WakeLock = wakelock.New(cfg.WakeLock.Command, logger.With("component", "wakelock"))
	}
	return k, nil
}

func choosePlayer(cfg config.ToneConfig, options Options) tone.Player {
	if options.Player != nil {
		return options.Player
	}
	if !cfg.Enabled {
		return tone.Nop{}
	}
	if len(cfg.Command) > 0 {
		return tone.CommandPlayer{Command: cfg.Command, SampleRate: cfg.SampleRate}
	}
	bell := options.Bell
	if bell == nil {
		bell = os.Stderr
	}
	return &tone.BellPlayer{W: bell}
}

// Start begins polling metrics and acquires the reader. Polling runs
// until ctx is cancelled or Close is called. A reader that cannot be
// acquired leaves the validator halted on screen; the error is
// returned so the caller can log it, not to abort.
func (k *Kiosk) Start(ctx context.Context) error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return errors.New("kiosk: closed")
	}
	if k.cancel != nil {
		k.mu.Unlock()
		return errors.New("kiosk: already started")
	}
	ctx, k.cancel = context.WithCancel(ctx)
	k.ctx = ctx
	k.pollerDone = make(chan struct{})
	done := k.pollerDone
	k.mu.Unlock()

	go func() {
		defer close(done)
		if err := k.Metrics.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			k.logger.Error("metrics poller stopped", "error", err)
		}
	}()
	return k.Validator.Start(ctx)
}

// refresh runs after each completed cycle so the dashboard reflects
// the scan just validated.
func (k *Kiosk) refresh() {
	k.mu.Lock()
	ctx := k.ctx
	k.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	k.Metrics.Refresh(ctx)
}

// Close tears everything down: pending requests are cancelled, the
// poller stops, in-flight validation drains, then the reader, wake
// lock, idle connections and journal are released. Idempotent.
func (k *Kiosk) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	cancel, done := k.cancel, k.pollerDone
	k.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	k.Validator.Close()

	var errs []error
	if err := k.Scanner.Close(); err != nil {
		errs = append(errs, fmt.Errorf("releasing reader: %w", err))
	}
	if k.WakeLock != nil {
		if err := k.WakeLock.Release(); err != nil {
			errs = append(errs, fmt.Errorf("releasing wake lock: %w", err))
		}
	}
	k.Client.CloseIdleConnections()
	if err := k.closeJournal(); err != nil {
		errs = append(errs, fmt.Errorf("closing journal: %w", err))
	}
	return errors.Join(errs...)
}

func (k *Kiosk) closeJournal() error {
	if k.Journal == nil {
		return nil
	}
	return k.Journal.Close()
}
