// Package bubbletea provides a Bubble Tea TUI for the warden client.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run creates and runs the Bubble Tea TUI program. It blocks until the
// program exits. The context is used for graceful shutdown; when cancelled,
// the program quits. The returned send function delivers external messages,
// such as [SessionExpiredMsg], into the running program.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// NewProgram creates the Bubble Tea program without running it, so callers
// can wire external message delivery before starting.
func NewProgram(m Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

// OpDoneMsg signals that a background engine operation has completed. Err is
// nil on success; the model re-renders from the store snapshot either way.
type OpDoneMsg struct {
	Err error
}

// SessionExpiredMsg forces the program to quit because the remote store
// rejected the session token. It arrives from outside the Update loop, via
// the session manager's expiry callback.
type SessionExpiredMsg struct{}
