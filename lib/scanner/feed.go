// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// feedQueueSize bounds payloads waiting for a frame.
const feedQueueSize = 8

// FeedSource is a Source whose payloads are pushed by the caller,
// typically a TUI receiving keystrokes from a keyboard-wedge scanner.
// Payloads fed while no stream is open are discarded: with the reader
// released, nothing is scanned.
type FeedSource struct {
	mu      sync.Mutex
	current *feedStream
}

// NewFeedSource returns an idle FeedSource.
func NewFeedSource() *FeedSource {
	return &FeedSource{}
}

// Open acquires the source. Fails with ErrCameraUnavailable while
// another stream is open.
func (f *FeedSource) Open(ctx context.Context, settings Settings) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		return nil, fmt.Errorf("%w: feed already open", ErrCameraUnavailable)
	}
	f.current = &feedStream{source: f, queue: make(chan string, feedQueueSize)}
	return f.current, nil
}

// Feed offers one payload. Reports whether it was queued; false means
// the source is closed or the queue is full.
func (f *FeedSource) Feed(text string) bool {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return false
	}
	select {
	case f.current.queue <- text:
		return true
	default:
		return false
	}
}

// Active reports whether a stream is open.
func (f *FeedSource) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current != nil
}

type feedStream struct {
	source *FeedSource
	queue  chan string
}

func (s *feedStream) Decode() (string, error) {
	select {
	case text := <-s.queue:
		return text, nil
	default:
		return "", ErrNoCode
	}
}

func (s *feedStream) Close() error {
	s.source.mu.Lock()
	defer s.source.mu.Unlock()
	if s.source.current == s {
		s.source.current = nil
	}
	return nil
}

// ReaderSource is a FeedSource fed line by line from a reader.
type ReaderSource struct {
	*FeedSource
	reader io.Reader
}

// NewReaderSource returns a source fed by Pump from r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{FeedSource: NewFeedSource(), reader: r}
}

// Pump feeds lines until the reader is exhausted or ctx is done.
// Returns nil at end of input. Lines read while the source is closed
// are discarded.
func (r *ReaderSource) Pump(ctx context.Context) error {
	lines := bufio.NewScanner(r.reader)
	for lines.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.Feed(strings.TrimSpace(lines.Text()))
	}
	return lines.Err()
}
