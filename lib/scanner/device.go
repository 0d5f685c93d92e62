// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// DeviceSource reads a QR scanner that presents decoded codes as
// newline-terminated text: USB CDC-ACM and serial readers, or any
// character device or FIFO behaving the same way.
type DeviceSource struct {
	Path string
}

// Open opens the device and takes an exclusive, non-blocking flock so
// that no other process reads the same scanner. The lock is released
// when the stream is closed.
func (d DeviceSource) Open(ctx context.Context, settings Settings) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(d.Path, os.O_RDONLY|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrCameraUnavailable, d.Path, err)
	}
	if err := lockExclusive(file); err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %s is in use: %v", ErrCameraUnavailable, d.Path, err)
	}

	stream := &deviceStream{
		path:  d.Path,
		file:  file,
		lines: make(chan string, 16),
	}
	go stream.read()
	return stream, nil
}

// lockExclusive flocks file through SyscallConn rather than Fd, which
// would switch the descriptor to blocking mode and stop Close from
// interrupting a pending read.
func lockExclusive(file *os.File) error {
	raw, err := file.SyscallConn()
	if err != nil {
		return err
	}
	var lockErr error
	if err := raw.Control(func(fd uintptr) {
		lockErr = unix.Flock(int(fd), unix.LOCK_EX|unix.LOCK_NB)
	}); err != nil {
		return err
	}
	return lockErr
}

type deviceStream struct {
	path  string
	file  *os.File
	lines chan string

	mu     sync.Mutex
	err    error
	closed bool
}

// read moves lines from the device into the lines channel until the
// device fails or is closed. Lines arriving faster than the frame
// loop drains them are dropped, as a camera drops frames.
func (s *deviceStream) read() {
	scanner := bufio.NewScanner(s.file)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		select {
		case s.lines <- line:
		default:
		}
	}
	err := scanner.Err()
	if err == nil {
		err = fmt.Errorf("end of input")
	}

	s.mu.Lock()
	if !s.closed {
		s.err = fmt.Errorf("scanner: device %s: %w", s.path, err)
	}
	s.mu.Unlock()
}

func (s *deviceStream) Decode() (string, error) {
	select {
	case line := <-s.lines:
		return line, nil
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return "", ErrNoCode
}

func (s *deviceStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	// Closing the descriptor drops the flock and unblocks read().
	return s.file.Close()
}
