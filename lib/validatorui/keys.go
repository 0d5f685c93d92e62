// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package validatorui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the operator key bindings. Letters and digits are
// deliberately unbound: they belong to the scanner input.
type KeyMap struct {
	Adults   key.Binding
	Minors   key.Binding
	Refresh  key.Binding
	WakeLock key.Binding
	Clear    key.Binding
	Quit     key.Binding
}

// DefaultKeyMap is the built-in binding set.
var DefaultKeyMap = KeyMap{
	Adults: key.NewBinding(
		key.WithKeys("f2"),
		key.WithHelp("F2", "adults"),
	),
	Minors: key.NewBinding(
		key.WithKeys("f3"),
		key.WithHelp("F3", "minors"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("f5"),
		key.WithHelp("F5", "refresh"),
	),
	WakeLock: key.NewBinding(
		key.WithKeys("f6"),
		key.WithHelp("F6", "keep awake"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "clear input"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
}

// help returns the bindings shown in the footer, in order.
func (k KeyMap) help() []key.Binding {
	return []key.Binding{k.Adults, k.Minors, k.Refresh, k.WakeLock, k.Clear, k.Quit}
}
