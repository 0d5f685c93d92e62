// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lpbme/club-validator/lib/backend"
	"github.com/lpbme/club-validator/lib/clock"
)

// Defaults for Config.
const (
	DefaultInterval = 15 * time.Second
	DefaultDays     = 7
)

// Fetcher retrieves a raw metrics body. *backend.Client implements it.
type Fetcher interface {
	Metrics(ctx context.Context, scope backend.Scope, days int) (map[string]any, error)
}

// Config configures a Poller.
type Config struct {
	// ResourceID is the resource whose metrics are always polled.
	ResourceID string

	// Interval defaults to DefaultInterval.
	Interval time.Duration
	// Days defaults to DefaultDays.
	Days int

	Fetcher Fetcher

	// Suppressed reports whether a validation result is on screen.
	// Nil means never suppressed.
	Suppressed func() bool

	Clock  clock.Clock
	Logger *slog.Logger
}

// ScopeView is what the dashboard shows for one scope.
type ScopeView struct {
	Scope    backend.Scope
	Snapshot Snapshot

	// Loaded is false until the first successful fetch.
	Loaded    bool
	UpdatedAt time.Time

	// Err is the most recent fetch error, cleared by the next
	// success. The previous Snapshot stays in place.
	Err error

	// Skipped counts ticks skipped, and Discarded fetches thrown
	// away, because a result was on screen.
	Skipped   int
	Discarded int
}

// View is the state of every active scope.
type View struct {
	Resource ScopeView
	// Village is nil until a village is known.
	Village *ScopeView
}

// scope is one polled aggregation with its own cadence.
type scope struct {
	key  backend.Scope
	view ScopeView
	stop chan struct{}
}

// Poller polls the resource scope and, once known, the village scope.
type Poller struct {
	interval   time.Duration
	days       int
	fetcher    Fetcher
	suppressed func() bool
	clock      clock.Clock
	logger     *slog.Logger

	updates chan struct{}
	loops   sync.WaitGroup

	mu       sync.Mutex
	ctx      context.Context
	resource *scope
	village  *scope
}

// New creates a Poller. Polling starts with Run.
func New(config Config) (*Poller, error) {
	if config.ResourceID == "" {
		return nil, errors.New("metrics: ResourceID is required")
	}
	if config.Fetcher == nil {
		return nil, errors.New("metrics: Fetcher is required")
	}
	interval := config.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	days := config.Days
	if days <= 0 {
		days = DefaultDays
	}
	suppressed := config.Suppressed
	if suppressed == nil {
		suppressed = func() bool { return false }
	}
	c := config.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		interval:   interval,
		days:       days,
		fetcher:    config.Fetcher,
		suppressed: suppressed,
		clock:      c,
		logger:     logger,
		updates:    make(chan struct{}, 1),
		resource:   newScope(backend.Scope{Kind: backend.ScopeResource, ID: config.ResourceID}),
	}, nil
}

func newScope(s backend.Scope) *scope {
	return &scope{
		key:  s,
		view: ScopeView{Scope: s, Snapshot: Empty()},
		stop: make(chan struct{}),
	}
}

// Run polls until ctx is done: the resource scope immediately and
// then every interval, plus the village scope once SetVillage names
// one. Returns after every polling goroutine has exited.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.ctx != nil {
		p.mu.Unlock()
		return errors.New("metrics: poller already running")
	}
	p.ctx = ctx
	p.startLocked(ctx, p.resource)
	if p.village != nil {
		p.startLocked(ctx, p.village)
	}
	p.mu.Unlock()

	<-ctx.Done()
	p.loops.Wait()
	return nil
}

// SetVillage activates polling of a village scope, replacing any
// previous village. The first fetch happens immediately when the
// poller is running.
func (p *Poller) SetVillage(villageID string) {
	if villageID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.village != nil {
		if p.village.key.ID == villageID {
			return
		}
		close(p.village.stop)
	}
	p.village = newScope(backend.Scope{Kind: backend.ScopeVillage, ID: villageID})
	p.logger.Info("polling village metrics", "village_id", villageID)
	if p.ctx != nil && p.ctx.Err() == nil {
		p.startLocked(p.ctx, p.village)
	}
	p.notify()
}

// Refresh fetches every active scope now, outside the cadence. It
// still obeys suppression: returns false without fetching while a
// result is on screen.
func (p *Poller) Refresh(ctx context.Context) bool {
	if p.suppressed() {
		p.logger.Debug("metrics refresh suppressed")
		return false
	}
	p.mu.Lock()
	scopes := []*scope{p.resource}
	if p.village != nil {
		scopes = append(scopes, p.village)
	}
	p.mu.Unlock()

	for _, s := range scopes {
		p.poll(ctx, s)
	}
	return true
}

// View returns a copy of every active scope.
func (p *Poller) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	view := View{Resource: p.resource.view}
	if p.village != nil {
		village := p.village.view
		view.Village = &village
	}
	return view
}

// Updates delivers a coalesced signal after every change to View.
func (p *Poller) Updates() <-chan struct{} {
	return p.updates
}

// startLocked launches the polling goroutine for s. The ticker is
// created before returning so its cadence starts now.
func (p *Poller) startLocked(ctx context.Context, s *scope) {
	ticker := p.clock.NewTicker(p.interval)
	p.loops.Add(1)
	go func() {
		defer p.loops.Done()
		defer ticker.Stop()

		p.poll(ctx, s)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				p.poll(ctx, s)
			}
		}
	}()
}

// poll performs one fetch for s, honoring suppression before and
// after the request.
func (p *Poller) poll(ctx context.Context, s *scope) {
	if p.suppressed() {
		p.update(s, func(view *ScopeView) { view.Skipped++ })
		p.logger.Debug("metrics tick skipped", "scope", s.key)
		return
	}

	raw, err := p.fetcher.Metrics(ctx, s.key, p.days)
	if ctx.Err() != nil {
		return
	}
	if p.suppressed() {
		p.update(s, func(view *ScopeView) { view.Discarded++ })
		p.logger.Debug("metrics discarded while suppressed", "scope", s.key)
		return
	}

	if err != nil {
		p.logger.Warn("metrics fetch failed", "scope", s.key, "error", err)
		p.update(s, func(view *ScopeView) { view.Err = err })
		return
	}
	snapshot := Normalize(raw)
	now := p.clock.Now()
	p.update(s, func(view *ScopeView) {
		view.Snapshot = snapshot
		view.Loaded = true
		view.UpdatedAt = now
		view.Err = nil
	})
}

func (p *Poller) update(s *scope, apply func(*ScopeView)) {
	p.mu.Lock()
	apply(&s.view)
	p.mu.Unlock()
	p.notify()
}

func (p *Poller) notify() {
	select {
	case p.updates <- struct{}{}:
	default:
	}
}
