// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoCode is returned by Stream.Decode when nothing was decoded
	// this frame.
	ErrNoCode = errors.New("scanner: no code in frame")

	// ErrCameraUnavailable wraps every failure to acquire the reader.
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// DefaultFrameRate is the decode rate when Settings.FrameRate is unset.
const DefaultFrameRate = 10

// Settings configures an acquired stream.
type Settings struct {
	// FrameRate is the number of decode attempts per second.
	FrameRate int
}

// FrameInterval returns the time between decode attempts.
func (s Settings) FrameInterval() time.Duration {
	rate := s.FrameRate
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	return time.Second / time.Duration(rate)
}

// Source acquires the reader.
type Source interface {
	// Open acquires exclusive use of the reader. Only one Stream may
	// be open at a time.
	Open(ctx context.Context, settings Settings) (Stream, error)
}

// Stream is an acquired reader. Decode must not block.
type Stream interface {
	// Decode returns the next decoded payload, ErrNoCode when there
	// is none, or another error when the reader is gone for good.
	Decode() (string, error)

	// Close releases the reader. Idempotent.
	Close() error
}

// Event is one accepted decode.
type Event struct {
	Text string
	At   time.Time
}
