// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lpbme/club-validator/lib/backend"
	"github.com/lpbme/club-validator/lib/clock"
	"github.com/lpbme/club-validator/lib/scanner"
	"github.com/lpbme/club-validator/lib/tone"
)

var (
	// ErrBusy is returned by Submit outside PhaseScanning.
	ErrBusy = errors.New("validation: not accepting scans")

	// ErrInvalidCompanions rejects companion counts outside the
	// Club's rules.
	ErrInvalidCompanions = errors.New("validation: adults must be 1 or 2 and minors 0 to 5")
)

// DefaultDisplayWindow is how long a result stays on screen.
const DefaultDisplayWindow = 2 * time.Second

// Submitter sends a scan to the backend. *backend.Client implements it.
type Submitter interface {
	SubmitScan(ctx context.Context, request backend.ScanRequest) (*backend.Response, error)
}

// Scanner is the reader lifecycle the validator drives.
// *scanner.Controller implements it.
type Scanner interface {
	Start(ctx context.Context) error
	Stop()
	Restart(ctx context.Context) error
}

// Attempt is one finished validation as handed to a Recorder.
type Attempt struct {
	Result     Result
	Token      string
	ResourceID int64
	// Response is nil for local rejections and transport failures.
	Response *backend.Response
}

// Recorder persists attempts. *journal.Journal implements it.
type Recorder interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// Config configures a Validator.
type Config struct {
	ResourceID int64
	Adults     int
	Minors     int

	// TokenPrefix defaults to DefaultTokenPrefix.
	TokenPrefix string
	// MinTokenLength defaults to DefaultMinTokenLength.
	MinTokenLength int
	// DisplayWindow defaults to DefaultDisplayWindow.
	DisplayWindow time.Duration

	Submitter Submitter
	Scanner   Scanner
	// Player defaults to tone.Nop.
	Player tone.Player
	// Recorder is optional.
	Recorder Recorder

	// OnVillage receives the village id of every result that names
	// one.
	OnVillage func(villageID string)
	// OnCycleComplete runs, on its own goroutine, each time the
	// display window closes and scanning resumes.
	OnCycleComplete func()

	Clock  clock.Clock
	Logger *slog.Logger
}

// State is a snapshot of the validator for rendering.
type State struct {
	Phase Phase
	// Result is set in PhaseShowingResult and PhaseHalted.
	Result *Result

	ResourceID int64
	Adults     int
	Minors     int

	VillageID   string
	VillageName string
}

// Validator runs the scan → validate → display cycle.
type Validator struct {
	resourceID    int64
	prefix        string
	minLength     int
	displayWindow time.Duration

	submitter       Submitter
	scanner         Scanner
	player          tone.Player
	recorder        Recorder
	onVillage       func(string)
	onCycleComplete func()
	clock           clock.Clock
	logger          *slog.Logger

	updates chan struct{}
	work    sync.WaitGroup

	mu          sync.Mutex
	ctx         context.Context
	phase       Phase
	result      *Result
	adults      int
	minors      int
	villageID   string
	villageName string
	display     *clock.Timer
	closed      bool
}

// New creates a Validator in PhaseScanning. Call Start to acquire the
// reader.
func New(config Config) (*Validator, error) {
	if config.Submitter == nil {
		return nil, errors.New("validation: Submitter is required")
	}
	if config.Scanner == nil {
		return nil, errors.New("validation: Scanner is required")
	}
	if err := checkCompanions(config.Adults, config.Minors); err != nil {
		return nil, err
	}

	prefix := config.TokenPrefix
	if prefix == "" {
		prefix = DefaultTokenPrefix
	}
	minLength := config.MinTokenLength
	if minLength <= 0 {
		minLength = DefaultMinTokenLength
	}
	displayWindow := config.DisplayWindow
	if displayWindow <= 0 {
		displayWindow = DefaultDisplayWindow
	}
	player := config.Player
	if player == nil {
		player = tone.Nop{}
	}
	c := config.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Validator{
		resourceID:      config.ResourceID,
		prefix:          prefix,
		minLength:       minLength,
		displayWindow:   displayWindow,
		submitter:       config.Submitter,
		scanner:         config.Scanner,
		player:          player,
		recorder:        config.Recorder,
		onVillage:       config.OnVillage,
		onCycleComplete: config.OnCycleComplete,
		clock:           c,
		logger:          logger,
		updates:         make(chan struct{}, 1),
		ctx:             context.Background(),
		phase:           PhaseScanning,
		adults:          config.Adults,
		minors:          config.Minors,
	}, nil
}

func checkCompanions(adults, minors int) error {
	if adults < 1 || adults > 2 || minors < 0 || minors > 5 {
		return fmt.Errorf("%w (got %d adults, %d minors)", ErrInvalidCompanions, adults, minors)
	}
	return nil
}

// Start acquires the reader. ctx bounds every request and restart
// made afterwards. A failure halts the validator with a persistent
// "camera unavailable" result and is also returned.
func (v *Validator) Start(ctx context.Context) error {
	v.mu.Lock()
	v.ctx = ctx
	v.mu.Unlock()

	if err := v.scanner.Start(ctx); err != nil {
		v.Halt(err)
		return err
	}
	v.logger.Info("validator scanning", "resource_id", v.resourceID)
	return nil
}

// HandleScan is the scanner callback. It never blocks on I/O.
func (v *Validator) HandleScan(event scanner.Event) {
	if err := v.Submit(event.Text); err != nil {
		v.logger.Debug("scan dropped", "phase", v.State().Phase, "error", err)
	}
}

// Submit starts validating a raw decoded payload. Returns ErrBusy
// unless the validator is in PhaseScanning. Malformed tokens are
// resolved locally as INVALID without a request.
func (v *Validator) Submit(text string) error {
	v.mu.Lock()
	if v.closed || v.phase != PhaseScanning {
		phase := v.phase
		v.mu.Unlock()
		return fmt.Errorf("%w (phase %s)", ErrBusy, phase)
	}
	ctx := v.ctx
	token := NormalizeToken(text, v.prefix)

	if !WellFormed(token, v.minLength) {
		result := Result{Outcome: Invalid, Reason: ReasonMalformed, At: v.clock.Now()}
		v.showLocked(result)
		v.work.Add(1)
		v.mu.Unlock()
		v.notify()

		go func() {
			defer v.work.Done()
			v.scanner.Stop()
			v.finish(ctx, Attempt{Result: result, Token: token, ResourceID: v.resourceID})
		}()
		return nil
	}

	v.transitionLocked(PhaseSubmitting)
	request := backend.ScanRequest{
		QRToken:       token,
		RecursoID:     v.resourceID,
		AdultosUsados: v.adults,
		MenoresUsados: v.minors,
	}
	v.work.Add(1)
	v.mu.Unlock()
	v.notify()

	go func() {
		defer v.work.Done()
		v.submit(ctx, request)
	}()
	return nil
}

func (v *Validator) submit(ctx context.Context, request backend.ScanRequest) {
	v.scanner.Stop()

	response, err := v.submitter.SubmitScan(ctx, request)
	if err != nil {
		v.logger.Warn("scan submission failed", "error", err)
	}
	result := Interpret(response, err)
	result.At = v.clock.Now()

	v.mu.Lock()
	if v.phase != PhaseSubmitting {
		v.mu.Unlock()
		return
	}
	v.showLocked(result)
	if result.VillageID != "" {
		v.villageID = result.VillageID
	}
	if result.VillageName != "" {
		v.villageName = result.VillageName
	}
	v.mu.Unlock()
	v.notify()

	v.logger.Info("scan validated",
		"outcome", result.Outcome,
		"reason", result.Reason,
		"status", result.HTTPStatus,
		"village", result.VillageName,
	)
	if result.VillageID != "" && v.onVillage != nil {
		v.onVillage(result.VillageID)
	}
	v.finish(ctx, Attempt{Result: result, Token: request.QRToken, ResourceID: request.RecursoID, Response: response})
}

// finish runs once the reader is stopped and the result is on screen:
// arm the display window, sound the tone, record the attempt.
func (v *Validator) finish(ctx context.Context, attempt Attempt) {
	v.mu.Lock()
	if v.phase == PhaseShowingResult && !v.closed {
		v.display = v.clock.AfterFunc(v.displayWindow, v.endDisplay)
	}
	v.mu.Unlock()

	v.play(ctx, attempt.Result.Outcome)

	if v.recorder != nil {
		// Teardown cancels ctx but waits for this; the attempt still
		// happened and is recorded.
		if err := v.recorder.RecordAttempt(context.WithoutCancel(ctx), attempt); err != nil {
			v.logger.Warn("recording scan", "error", err)
		}
	}
}

// endDisplay closes the display window. The reader is restarted
// before the phase returns to Scanning so that no payload is accepted
// while it is still released.
func (v *Validator) endDisplay() {
	v.mu.Lock()
	if v.phase != PhaseShowingResult || v.closed {
		v.mu.Unlock()
		return
	}
	v.display = nil
	ctx := v.ctx
	v.work.Add(1)
	v.mu.Unlock()
	defer v.work.Done()

	if err := v.scanner.Restart(ctx); err != nil {
		v.Halt(err)
		return
	}

	v.mu.Lock()
	if v.phase != PhaseShowingResult {
		v.mu.Unlock()
		return
	}
	v.transitionLocked(PhaseScanning)
	v.result = nil
	v.mu.Unlock()
	v.notify()

	if v.onCycleComplete != nil {
		v.work.Add(1)
		go func() {
			defer v.work.Done()
			v.onCycleComplete()
		}()
	}
}

// Halt moves to PhaseHalted with a persistent "camera unavailable"
// result. Used when the reader cannot be acquired or is lost.
func (v *Validator) Halt(cause error) {
	v.mu.Lock()
	if v.phase == PhaseHalted {
		v.mu.Unlock()
		return
	}
	v.transitionLocked(PhaseHalted)
	v.result = &Result{Outcome: Error, Reason: ReasonCamera, At: v.clock.Now()}
	if v.display != nil {
		v.display.Stop()
		v.display = nil
	}
	ctx := v.ctx
	closed := v.closed
	if !closed {
		v.work.Add(1)
	}
	v.mu.Unlock()
	v.notify()

	v.logger.Error("scanning halted", "error", cause)
	if !closed {
		go func() {
			defer v.work.Done()
			v.playNow(ctx, Error)
		}()
	}
}

// SetCompanions changes the counts claimed by the next request.
func (v *Validator) SetCompanions(adults, minors int) error {
	if err := checkCompanions(adults, minors); err != nil {
		return err
	}
	v.mu.Lock()
	v.adults, v.minors = adults, minors
	v.mu.Unlock()
	v.notify()
	return nil
}

// Suppressed reports whether a result is on screen. The metrics
// poller consults it before every fetch.
func (v *Validator) Suppressed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase == PhaseShowingResult
}

// State returns a snapshot of the current state.
func (v *Validator) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	state := State{
		Phase:       v.phase,
		ResourceID:  v.resourceID,
		Adults:      v.adults,
		Minors:      v.minors,
		VillageID:   v.villageID,
		VillageName: v.villageName,
	}
	if v.result != nil {
		result := *v.result
		state.Result = &result
	}
	return state
}

// Updates delivers a signal after every state change. Signals
// coalesce: a reader that falls behind sees one pending signal and
// should read State.
func (v *Validator) Updates() <-chan struct{} {
	return v.updates
}

// Close cancels the display window and waits for in-flight work. The
// context passed to Start should be cancelled first so that a pending
// request returns. The reader is not released here; the scanner's
// owner closes it.
func (v *Validator) Close() {
	v.mu.Lock()
	v.closed = true
	if v.display != nil {
		v.display.Stop()
		v.display = nil
	}
	v.mu.Unlock()
	v.work.Wait()
}

func (v *Validator) showLocked(result Result) {
	v.transitionLocked(PhaseShowingResult)
	v.result = &result
}

// transitionLocked moves to next, panicking on an illegal edge. The
// guards in the callers make an illegal edge a programming error.
func (v *Validator) transitionLocked(next Phase) {
	if !canTransition(v.phase, next) {
		panic(fmt.Sprintf("validation: illegal transition %s → %s", v.phase, next))
	}
	v.phase = next
}

func (v *Validator) notify() {
	select {
	case v.updates <- struct{}{}:
	default:
	}
}

// play sounds the tone for outcome without blocking. Callers run on
// a goroutine already counted in v.work.
func (v *Validator) play(ctx context.Context, outcome Outcome) {
	v.work.Add(1)
	go func() {
		defer v.work.Done()
		v.playNow(ctx, outcome)
	}()
}

func (v *Validator) playNow(ctx context.Context, outcome Outcome) {
	sound := tone.Reject
	if outcome == Valid {
		sound = tone.Confirm
	}
	if err := v.player.Play(ctx, sound); err != nil {
		v.logger.Debug("tone playback failed", "tone", sound.Name, "error", err)
	}
}
