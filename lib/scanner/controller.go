// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lpbme/club-validator/lib/clock"
)

// Config configures a Controller.
type Config struct {
	// Source is the reader to acquire. Required.
	Source Source

	// Settings are passed to Source.Open.
	Settings Settings

	// DedupWindow defaults to DefaultDedupWindow.
	DedupWindow time.Duration

	// Clock drives the frame loop and the dedup window. Defaults to
	// clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnDecode receives each accepted event on the frame loop
	// goroutine. It must return promptly and must not call Stop,
	// Restart or Close, which wait for the loop to exit.
	OnDecode func(Event)

	// OnFailure is called, from the frame loop goroutine, when an
	// open stream fails permanently (reader unplugged). The loop
	// has exited and the stream is released by the next Stop.
	OnFailure func(error)
}

// Controller runs the decode loop over an acquired Stream.
type Controller struct {
	source    Source
	settings  Settings
	clock     clock.Clock
	logger    *slog.Logger
	dedup     *Deduplicator
	onDecode  func(Event)
	onFailure func(error)

	mu      sync.Mutex
	running *loop
}

// loop is one acquisition of the stream, from Start to Stop.
type loop struct {
	stream Stream
	ticker *clock.Ticker
	stop   chan struct{}
	done   chan struct{}
}

// New creates a stopped Controller.
func New(config Config) (*Controller, error) {
	if config.Source == nil {
		return nil, errors.New("scanner: Source is required")
	}
	if config.OnDecode == nil {
		return nil, errors.New("scanner: OnDecode is required")
	}
	c := config.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		source:    config.Source,
		settings:  config.Settings,
		clock:     c,
		logger:    logger,
		dedup:     NewDeduplicator(c, config.DedupWindow),
		onDecode:  config.OnDecode,
		onFailure: config.OnFailure,
	}, nil
}

// Start acquires the source and begins decoding. A no-op when already
// running. An acquisition failure wraps ErrCameraUnavailable and is
// not retried.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running != nil {
		return nil
	}

	stream, err := c.source.Open(ctx, c.settings)
	if err != nil {
		if !errors.Is(err, ErrCameraUnavailable) {
			err = fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
		}
		return err
	}

	// The ticker is created here rather than in the goroutine so that
	// it exists by the time Start returns.
	running := &loop{
		stream: stream,
		ticker: c.clock.NewTicker(c.settings.FrameInterval()),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.running = running
	go c.run(running)

	c.logger.Debug("scanner started", "frame_interval", c.settings.FrameInterval())
	return nil
}

// Stop halts decoding and releases the source. Safe to call when
// already stopped.
func (c *Controller) Stop() {
	c.mu.Lock()
	running := c.running
	c.running = nil
	c.mu.Unlock()

	if running == nil {
		return
	}
	close(running.stop)
	<-running.done
	if err := running.stream.Close(); err != nil {
		c.logger.Warn("releasing scanner", "error", err)
	}
	c.logger.Debug("scanner stopped")
}

// Restart is Stop followed by Start.
func (c *Controller) Restart(ctx context.Context) error {
	c.Stop()
	return c.Start(ctx)
}

// Close releases the source. Equivalent to Stop.
func (c *Controller) Close() error {
	c.Stop()
	return nil
}

// Running reports whether the source is currently held.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running != nil
}

func (c *Controller) run(running *loop) {
	defer close(running.done)
	defer running.ticker.Stop()

	for {
		select {
		case <-running.stop:
			return
		case <-running.ticker.C:
		}

		text, err := running.stream.Decode()
		switch {
		case errors.Is(err, ErrNoCode):
			continue
		case err != nil:
			c.logger.Warn("scanner stream failed", "error", err)
			if c.onFailure != nil {
				c.onFailure(err)
			}
			return
		}

		if !c.dedup.Accept(text) {
			c.logger.Debug("duplicate scan dropped")
			continue
		}
		c.onDecode(Event{Text: text, At: c.clock.Now()})
	}
}
