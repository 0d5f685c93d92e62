// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validatorui

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lpbme/club-validator/lib/clock"
	"github.com/lpbme/club-validator/lib/metrics"
	"github.com/lpbme/club-validator/lib/tui"
	"github.com/lpbme/club-validator/lib/validation"
	"github.com/lpbme/club-validator/lib/wakelock"
)

// maxInput bounds the typed line. Real payloads are far shorter; a
// stuck key must not grow the buffer forever.
const maxInput = 512

// Validator is the part of *validation.Validator the model uses.
type Validator interface {
	State() validation.State
	Updates() <-chan struct{}
	SetCompanions(adults, minors int) error
}

// Metrics is the part of *metrics.Poller the model uses.
type Metrics interface {
	View() metrics.View
	Updates() <-chan struct{}
	Refresh(ctx context.Context) bool
}

// WakeLock is the part of *wakelock.Inhibitor the model uses.
type WakeLock interface {
	Toggle(ctx context.Context) (bool, error)
	Held() bool
}

// Feeder accepts one decoded line. *scanner.FeedSource implements it.
type Feeder interface {
	Feed(text string) bool
}

// Config configures NewModel. Validator is required.
type Config struct {
	Validator Validator
	Metrics   Metrics
	// WakeLock is nil when no inhibitor is configured.
	WakeLock WakeLock
	// Feed receives typed lines; nil ignores keyboard input.
	Feed Feeder

	Clock clock.Clock
	Theme *tui.Theme
	Keys  *KeyMap
}

type validatorChangedMsg struct{}

type metricsChangedMsg struct{}

type refreshDoneMsg struct{ ran bool }

type wakeLockMsg struct {
	held bool
	err  error
}

type statusFadeMsg struct{ generation int }

// Model is the bubbletea model of the kiosk screen.
type Model struct {
	ctx       context.Context
	validator Validator
	metrics   Metrics
	wakeLock  WakeLock
	feed      Feeder
	clock     clock.Clock
	theme     tui.Theme
	keys      KeyMap

	width  int
	height int

	input    []rune
	state    validation.State
	view     metrics.View
	wakeHeld bool

	status           string
	statusLevel      slog.Level
	statusGeneration int
}

// NewModel creates the model. ctx bounds the background commands the
// model starts; cancel it after the program exits.
func NewModel(ctx context.Context, config Config) Model {
	model := Model{
		ctx:       ctx,
		validator: config.Validator,
		metrics:   config.Metrics,
		wakeLock:  config.WakeLock,
		feed:      config.Feed,
		clock:     config.Clock,
		theme:     tui.DefaultTheme,
		keys:      DefaultKeyMap,
		width:     80,
		height:    24,
	}
	if model.clock == nil {
		model.clock = clock.Real()
	}
	if config.Theme != nil {
		model.theme = *config.Theme
	}
	if config.Keys != nil {
		model.keys = *config.Keys
	}
	model.state = model.validator.State()
	if model.metrics != nil {
		model.view = model.metrics.View()
	}
	if model.wakeLock != nil {
		model.wakeHeld = model.wakeLock.Held()
	}
	return model
}

// Init subscribes to validator and metrics changes.
func (model Model) Init() tea.Cmd {
	commands := []tea.Cmd{model.listen(model.validator.Updates(), validatorChangedMsg{})}
	if model.metrics != nil {
		commands = append(commands, model.listen(model.metrics.Updates(), metricsChangedMsg{}))
	}
	return tea.Batch(commands...)
}

// listen waits for one signal on channel. Update re-arms it after
// each delivery.
func (model Model) listen(channel <-chan struct{}, message tea.Msg) tea.Cmd {
	ctx := model.ctx
	return func() tea.Msg {
		select {
		case <-channel:
			return message
		case <-ctx.Done():
			return nil
		}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		return model, nil

	case validatorChangedMsg:
		model.state = model.validator.State()
		return model, model.listen(model.validator.Updates(), validatorChangedMsg{})

	case metricsChangedMsg:
		model.view = model.metrics.View()
		return model, model.listen(model.metrics.Updates(), metricsChangedMsg{})

	case refreshDoneMsg:
		if !message.ran {
			return model.setStatus("metrics refresh skipped while a result is shown", slog.LevelInfo)
		}
		return model, nil

	case wakeLockMsg:
		if message.err != nil {
			return model.setStatus("wake lock: "+message.err.Error(), slog.LevelWarn)
		}
		model.wakeHeld = message.held
		if message.held {
			return model.setStatus("screen kept awake", slog.LevelInfo)
		}
		return model.setStatus("screen may sleep", slog.LevelInfo)

	case logRecordMsg:
		return model.setStatus(message.Summary, message.Level)

	case statusFadeMsg:
		if message.generation == model.statusGeneration {
			model.status = ""
		}
		return model, nil

	case tea.KeyMsg:
		return model.handleKey(message)
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Adults):
		adults := 1
		if model.state.Adults == 1 {
			adults = 2
		}
		return model.setCompanions(adults, model.state.Minors)

	case key.Matches(message, model.keys.Minors):
		return model.setCompanions(model.state.Adults, (model.state.Minors+1)%6)

	case key.Matches(message, model.keys.Refresh):
		if model.metrics == nil {
			return model, nil
		}
		poller, ctx := model.metrics, model.ctx
		return model, func() tea.Msg { return refreshDoneMsg{ran: poller.Refresh(ctx)} }

	case key.Matches(message, model.keys.WakeLock):
		if model.wakeLock == nil {
			return model.setStatus("wake lock: "+wakelock.ErrNoCommand.Error(), slog.LevelWarn)
		}
		lock, ctx := model.wakeLock, model.ctx
		return model, func() tea.Msg {
			held, err := lock.Toggle(ctx)
			return wakeLockMsg{held: held, err: err}
		}

	case key.Matches(message, model.keys.Clear):
		model.input = nil
		return model, nil
	}

	switch message.Type {
	case tea.KeyEnter:
		return model.submitInput()
	case tea.KeyBackspace:
		if len(model.input) > 0 {
			model.input = model.input[:len(model.input)-1]
		}
		return model, nil
	case tea.KeySpace:
		model.input = appendInput(model.input, []rune{' '})
		return model, nil
	case tea.KeyRunes:
		model.input = appendInput(model.input, message.Runes)
		return model, nil
	}
	return model, nil
}

func appendInput(input, runes []rune) []rune {
	for _, r := range runes {
		if len(input) >= maxInput {
			break
		}
		// Wedge readers sometimes terminate with CR inside a paste.
		if r == '\r' || r == '\n' || !unicode.IsPrint(r) {
			continue
		}
		input = append(input, r)
	}
	return input
}

func (model Model) submitInput() (tea.Model, tea.Cmd) {
	line := string(model.input)
	model.input = nil
	if line == "" || model.feed == nil {
		return model, nil
	}
	if !model.feed.Feed(line) {
		return model.setStatus("scan ignored: scanner paused", slog.LevelInfo)
	}
	return model, nil
}

func (model Model) setCompanions(adults, minors int) (tea.Model, tea.Cmd) {
	if err := model.validator.SetCompanions(adults, minors); err != nil {
		if errors.Is(err, validation.ErrInvalidCompanions) {
			return model.setStatus(err.Error(), slog.LevelWarn)
		}
		return model.setStatus("companions: "+err.Error(), slog.LevelError)
	}
	// The validator notifies; apply locally too so the next keypress
	// sees the new counts even before that message arrives.
	model.state.Adults, model.state.Minors = adults, minors
	return model, nil
}

func (model Model) setStatus(text string, level slog.Level) (tea.Model, tea.Cmd) {
	model.status = text
	model.statusLevel = level
	model.statusGeneration++
	generation := model.statusGeneration
	return model, tea.Tick(statusFadeDelay, func(time.Time) tea.Msg {
		return statusFadeMsg{generation: generation}
	})
}
