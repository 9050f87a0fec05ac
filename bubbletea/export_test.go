package bubbletea

import "github.com/fwojciec/warden"

// RenderMessage exposes renderMessage for tests.
func (m Model) RenderMessage(msg warden.Message) string { return m.renderMessage(msg) }

// PickerOpen exposes the input mode for tests.
func (m Model) PickerOpen() bool { return m.mode == modePicker }

// PickedIDs exposes the picker selection for tests.
func (m Model) PickedIDs() []string { return m.pickedIDs() }
