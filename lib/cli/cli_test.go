// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lpbme/club-validator/lib/process"
)

func TestToolErrorHint(t *testing.T) {
	err := Validation("resource id is required")
	if err.Error() != "resource id is required" {
		t.Errorf("Error() = %q", err.Error())
	}

	chained := err.WithHint("Pass --resource or set validator.resource_id.")
	if chained != err {
		t.Error("WithHint should return the receiver")
	}
	want := "resource id is required\n\nPass --resource or set validator.resource_id."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestToolErrorExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad flag"), 2},
		{"wrapped validation", fmt.Errorf("loading: %w", Validation("bad file")), 2},
		{"not found", NotFound("no journal"), 1},
		{"transient", Transient("backend unreachable"), 1},
		{"internal", Internal("disk full"), 1},
		{"exit error", &ExitError{Code: 3}, 3},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := process.ExitCode(test.err); got != test.want {
				t.Errorf("ExitCode = %d, want %d", got, test.want)
			}
		})
	}
}

func TestToolErrorUnwrap(t *testing.T) {
	inner := os.ErrNotExist
	err := NotFound("journal: %w", inner)
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("errors.Is should see through ToolError")
	}
	var toolErr *ToolError
	if !errors.As(fmt.Errorf("wrapped: %w", err.WithHint("check the path")), &toolErr) {
		t.Fatal("errors.As should find the ToolError")
	}
	if toolErr.Hint != "check the path" || toolErr.Category != CategoryNotFound {
		t.Errorf("ToolError = %+v", toolErr)
	}
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"debug", "INFO", "warn", "error"} {
		if _, err := ParseLevel(name); err != nil {
			t.Errorf("ParseLevel(%q): %v", name, err)
		}
	}
	if _, err := ParseLevel("loud"); process.ExitCode(err) != 2 {
		t.Errorf("ParseLevel(loud) error = %v, want a validation error", err)
	}
}

func TestFanoutHandler(t *testing.T) {
	var warnings, everything bytes.Buffer
	handler := FanoutHandler{
		newHandler(&warnings, true, slog.LevelWarn),
		newHandler(&everything, false, slog.LevelDebug),
	}
	logger := slog.New(handler).With("component", "scanner")

	logger.Info("decoded", "text", "LPBME:QR:1")
	logger.Warn("camera lost")

	if strings.Contains(warnings.String(), "decoded") {
		t.Errorf("warn handler received info record: %q", warnings.String())
	}
	if !strings.Contains(warnings.String(), "camera lost") || !strings.Contains(warnings.String(), "component=scanner") {
		t.Errorf("warn handler output = %q", warnings.String())
	}
	lines := strings.Split(strings.TrimSpace(everything.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("JSON handler wrote %d lines, want 2: %q", len(lines), everything.String())
	}
	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("fanout should be enabled when any handler is")
	}
}

func TestOpenFileLogHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validator.log")
	handler, closeFile, err := OpenFileLogHandler(path)
	if err != nil {
		t.Fatalf("OpenFileLogHandler: %v", err)
	}
	slog.New(handler).Debug("poll", "scope", "resource:42")
	closeFile()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"scope":"resource:42"`) {
		t.Errorf("log file = %q", data)
	}
}

func TestWriteJSONNilSlice(t *testing.T) {
	var buffer bytes.Buffer
	var entries []string
	if err := WriteJSON(&buffer, entries); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := strings.TrimSpace(buffer.String()); got != "[]" {
		t.Errorf("nil slice encoded as %q, want []", got)
	}

	buffer.Reset()
	if err := WriteJSON(&buffer, map[string]int{"total": 3}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !strings.Contains(buffer.String(), "\n  \"total\": 3\n") {
		t.Errorf("map not indented: %q", buffer.String())
	}
}
