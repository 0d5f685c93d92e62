// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wakelock keeps the kiosk display awake while the operator
// wants it to.
//
// The lock is a long-running child process, by default
// systemd-inhibit wrapping "sleep infinity". Holding the lock means
// the child is alive; releasing it kills the child. If the child dies
// on its own the lock is reported as no longer held.
package wakelock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
)

// ErrNoCommand is returned by Acquire when no inhibitor command is
// configured.
var ErrNoCommand = errors.New("wakelock: no inhibitor command configured")

// Inhibitor owns the inhibitor child process. Safe for concurrent use.
type Inhibitor struct {
	command []string
	logger  *slog.Logger

	mu      sync.Mutex
	process *exec.Cmd
	exited  chan struct{}
}

// New returns an Inhibitor that runs command when acquired.
func New(command []string, logger *slog.Logger) *Inhibitor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Inhibitor{command: command, logger: logger}
}

// Acquire starts the inhibitor. Acquiring a held lock does nothing.
// The child is not tied to ctx; it lives until Release.
func (i *Inhibitor) Acquire(ctx context.Context) error {
	if len(i.command) == 0 {
		return ErrNoCommand
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.process != nil {
		return nil
	}

	process := exec.Command(i.command[0], i.command[1:]...)
	// Own process group so a terminal Ctrl+C reaches us, not the
	// inhibitor, and teardown decides when it goes.
	process.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := process.Start(); err != nil {
		return fmt.Errorf("wakelock: starting %s: %w", i.command[0], err)
	}

	exited := make(chan struct{})
	i.process = process
	i.exited = exited
	go i.wait(process, exited)

	i.logger.Info("wake lock acquired", "command", i.command[0], "pid", process.Process.Pid)
	return nil
}

func (i *Inhibitor) wait(process *exec.Cmd, exited chan struct{}) {
	err := process.Wait()
	close(exited)

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.process != process {
		return
	}
	// Still registered: nobody asked for this exit.
	i.process = nil
	i.exited = nil
	i.logger.Warn("wake lock inhibitor exited", "error", err)
}

// Release stops the inhibitor and waits for it to exit. Releasing a
// lock that is not held does nothing.
func (i *Inhibitor) Release() error {
	i.mu.Lock()
	process, exited := i.process, i.exited
	i.process = nil
	i.exited = nil
	i.mu.Unlock()

	if process == nil {
		return nil
	}
	// The whole group goes, so the wrapped "sleep" does not outlive
	// systemd-inhibit.
	if err := syscall.Kill(-process.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("wakelock: stopping inhibitor: %w", err)
	}
	<-exited
	i.logger.Info("wake lock released")
	return nil
}

// Held reports whether the inhibitor is running.
func (i *Inhibitor) Held() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.process != nil
}

// Toggle releases a held lock or acquires a free one, and reports
// whether the lock is held afterwards.
func (i *Inhibitor) Toggle(ctx context.Context) (bool, error) {
	if i.Held() {
		return false, i.Release()
	}
	if err := i.Acquire(ctx); err != nil {
		return false, err
	}
	return true, nil
}
