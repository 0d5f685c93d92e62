// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tone

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Player plays a tone. Play may block for the tone's duration.
type Player interface {
	Play(ctx context.Context, t Tone) error
}

// CommandPlayer pipes the synthesized WAV to the standard input of an
// external player, by default "aplay -q -".
type CommandPlayer struct {
	Command    []string
	SampleRate int
}

// DefaultCommand plays a WAV from standard input with ALSA.
var DefaultCommand = []string{"aplay", "-q", "-"}

func (p CommandPlayer) Play(ctx context.Context, t Tone) error {
	command := p.Command
	if len(command) == 0 {
		command = DefaultCommand
	}
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stdin = bytes.NewReader(Synthesize(t, p.SampleRate))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tone: playing %s with %s: %w (%s)",
			t.Name, command[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// BellPlayer rings the terminal bell: once to confirm, twice to
// reject. Used when no audio player is available.
type BellPlayer struct {
	mu sync.Mutex
	W  io.Writer
}

func (p *BellPlayer) Play(ctx context.Context, t Tone) error {
	if p.W == nil {
		return errors.New("tone: bell player has no writer")
	}
	bell := "\a"
	if t.Waveform == Square {
		bell = "\a\a"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.W, bell)
	return err
}

// Nop discards tones.
type Nop struct{}

func (Nop) Play(context.Context, Tone) error { return nil }
