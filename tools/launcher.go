// Package tools coordinates tool activation: remote launch first, local
// activation only after the remote confirms.
package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fwojciec/warden"
)

// Activator is the conversation-store surface the launcher needs.
type Activator interface {
	ActivateTools(conversationID string, toolIDs []string)
}

// Launcher activates tools for a conversation. Activation is all-or-nothing:
// the local set changes only after the remote launch succeeds, so a failed
// launch leaves no partial state behind.
type Launcher struct {
	remote warden.Remote
	store  Activator
	logger *slog.Logger
}

// Option configures a [Launcher].
type Option func(*Launcher)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(la *Launcher) { la.logger = l }
}

// NewLauncher creates a Launcher backed by the given remote and store.
func NewLauncher(remote warden.Remote, store Activator, opts ...Option) *Launcher {
	la := &Launcher{
		remote: remote,
		store:  store,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(la)
	}
	return la
}

// Launch activates the given tools for a conversation. An empty selection
// fails before any remote call; selections only ever grow the conversation's
// activated set, so relaunching an already-active tool is harmless.
func (la *Launcher) Launch(ctx context.Context, conversationID string, toolIDs []string) error {
	if len(toolIDs) == 0 {
		return fmt.Errorf("no tools selected: %w", warden.ErrInvalidArgument)
	}

	if err := la.remote.LaunchTools(ctx, conversationID, toolIDs); err != nil {
		la.logger.Warn("tool launch failed", "conversation", conversationID, "tools", toolIDs, "error", err)
		return err
	}

	la.store.ActivateTools(conversationID, toolIDs)
	la.logger.Info("tools launched", "conversation", conversationID, "tools", toolIDs)
	return nil
}
