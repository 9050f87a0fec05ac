// Package conversation holds the set of conversations and their message
// sequences, applies optimistic local mutations, and reconciles them against
// the authoritative remote store.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fwojciec/warden"
)

// Store owns the conversation and message collections; no other component
// mutates them directly. Reloads replace local state wholesale rather than
// merging: the remote store is authoritative, and the occasional clobbered
// optimistic entry is an accepted tradeoff for a single-client system.
type Store struct {
	remote warden.Remote
	logger *slog.Logger

	mu            sync.Mutex
	conversations []*warden.Conversation // remote-defined order
	activeID      string
}

// Option configures a [Store].
type Option func(*Store)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a Store backed by the given remote.
func NewStore(remote warden.Remote, opts ...Option) *Store {
	s := &Store{
		remote: remote,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// LoadAll fetches conversation summaries and replaces local state entirely.
// Loaded message histories are dropped; callers re-fetch them per
// conversation. The first conversation in remote order becomes active when
// the current active one is gone or none was set.
func (s *Store) LoadAll(ctx context.Context) error {
	summaries, err := s.remote.ListConversations(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	convs := make([]*warden.Conversation, len(summaries))
	for i, sum := range summaries {
		convs[i] = &warden.Conversation{
			ID:        sum.ID,
			Title:     sum.Title,
			CreatedAt: sum.CreatedAt,
			UpdatedAt: sum.UpdatedAt,
			Tools:     warden.NewToolSet(sum.Tools...),
		}
	}
	s.conversations = convs

	if s.findLocked(s.activeID) == nil {
		if len(convs) > 0 {
			s.activeID = convs[0].ID
		} else {
			s.activeID = ""
		}
	}
	return nil
}

// LoadMessages fetches the full message sequence for one conversation and
// replaces that conversation's history wholesale. Partial histories are never
// merged; that is what keeps interleaved syncs from duplicating messages.
// The result is discarded if the conversation vanished while the fetch was in
// flight.
func (s *Store) LoadMessages(ctx context.Context, conversationID string) error {
	msgs, err := s.remote.ListMessages(ctx, conversationID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(conversationID)
	if conv == nil {
		s.logger.Debug("discarding messages for vanished conversation", "conversation", conversationID)
		return nil
	}
	conv.Messages = msgs
	return nil
}

// Create makes a conversation on the remote store, re-derives local state
// from the authoritative list, and marks the new conversation active. Local
// state is never created optimistically here: the server assigns the ID, and
// re-deriving avoids any drift between a guessed ID and the real one.
func (s *Store) Create(ctx context.Context, title string, tools []string) (string, error) {
	if title == "" {
		title = "New Chat"
	}
	id, err := s.remote.CreateConversation(ctx, title, tools)
	if err != nil {
		return "", err
	}
	if err := s.LoadAll(ctx); err != nil {
		return id, err
	}

	s.mu.Lock()
	if s.findLocked(id) != nil {
		s.activeID = id
	}
	s.mu.Unlock()
	return id, nil
}

// Send submits one user message. When conversationID is set, the user's text
// is appended to that conversation immediately so feedback is instant; the
// remote response then supersedes the optimistic entry via a full reload.
// When conversationID is empty, the server creates an implicit conversation
// and its assigned ID is adopted.
//
// On failure of any kind the optimistic entry is retained and an ErrorNotice
// is appended after it, so the user sees both the attempt and the failure.
func (s *Store) Send(ctx context.Context, conversationID, text string, tools []string) error {
	op := uuid.NewString()
	now := time.Now()

	if conversationID != "" {
		s.mu.Lock()
		if conv := s.findLocked(conversationID); conv != nil {
			conv.Messages = append(conv.Messages, warden.UserText{Text: text, Timestamp: now})
			conv.UpdatedAt = now
		}
		s.mu.Unlock()
	}

	s.logger.Debug("sending message", "op", op, "conversation", conversationID)
	result, err := s.remote.SendMessage(ctx, warden.SendRequest{
		ConversationID: conversationID,
		Query:          text,
		Tools:          tools,
	})
	if err != nil {
		s.logger.Warn("send failed", "op", op, "conversation", conversationID, "error", err)
		s.appendErrorNotice(conversationID, err)
		return err
	}

	if conversationID == "" {
		// First message of a brand-new implicit conversation: adopt the
		// server-assigned ID and re-derive the list.
		if err := s.LoadAll(ctx); err != nil {
			s.appendErrorNotice(result.ConversationID, err)
			return err
		}
		s.mu.Lock()
		if s.findLocked(result.ConversationID) != nil {
			s.activeID = result.ConversationID
		}
		s.mu.Unlock()
		if err := s.LoadMessages(ctx, result.ConversationID); err != nil {
			s.appendErrorNotice(result.ConversationID, err)
			return err
		}
		return nil
	}

	// Re-fetch the conversation to fold in the assistant's reply. Server
	// truth supersedes the optimistic entry.
	if err := s.LoadMessages(ctx, result.ConversationID); err != nil {
		s.appendErrorNotice(conversationID, err)
		return err
	}
	return nil
}

// Delete removes a conversation remotely and re-derives local state. The
// last remaining conversation cannot be deleted; there must always be at
// least one. If the deleted conversation was active, the first remaining one
// (by remote order) becomes active.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	if len(s.conversations) <= 1 {
		s.mu.Unlock()
		return fmt.Errorf("cannot delete the last remaining conversation: %w", warden.ErrInvalidArgument)
	}
	s.mu.Unlock()

	if err := s.remote.DeleteConversation(ctx, conversationID); err != nil {
		return err
	}
	return s.LoadAll(ctx)
}

// ActivateTools applies a successful tool launch: the conversation's
// activated set grows by union (relaunching an active tool is a harmless
// no-op), a SystemNotice summarizing the launched tool names is appended,
// and a conversation with no prior messages gets a tool-derived title. The
// launch is dropped if the conversation vanished in the meantime.
func (s *Store) ActivateTools(conversationID string, toolIDs []string) {
	names := make([]string, len(toolIDs))
	for i, id := range toolIDs {
		names[i] = warden.ToolName(id)
	}
	label := strings.Join(names, ", ")
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(conversationID)
	if conv == nil {
		s.logger.Debug("discarding tool activation for vanished conversation", "conversation", conversationID)
		return
	}
	if len(conv.Messages) == 0 {
		conv.Title = "Chat with " + label
	}
	conv.Tools = conv.Tools.Union(toolIDs)
	conv.Messages = append(conv.Messages, warden.SystemNotice{
		Text:      fmt.Sprintf("Tools configured and launched: %s. Ask me to scan, test, or analyze targets!", label),
		Timestamp: now,
	})
	conv.UpdatedAt = now
}

// SetActive switches the active conversation. It reports false when the
// conversation does not exist locally.
func (s *Store) SetActive(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(conversationID) == nil {
		return false
	}
	s.activeID = conversationID
	return true
}

// ActiveID returns the active conversation's ID, or "" when none exists.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns a copy of the active conversation.
func (s *Store) Active() (warden.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.findLocked(s.activeID)
	if conv == nil {
		return warden.Conversation{}, false
	}
	return copyConversation(conv), true
}

// Get returns a copy of one conversation.
func (s *Store) Get(conversationID string) (warden.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.findLocked(conversationID)
	if conv == nil {
		return warden.Conversation{}, false
	}
	return copyConversation(conv), true
}

// Snapshot returns copies of all conversations in remote-defined order.
func (s *Store) Snapshot() []warden.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]warden.Conversation, len(s.conversations))
	for i, conv := range s.conversations {
		out[i] = copyConversation(conv)
	}
	return out
}

// appendErrorNotice materializes a failure in the conversation timeline so it
// stays visible next to the attempt, not just as a transient toast. A missing
// conversation (including an empty ID) drops the notice.
func (s *Store) appendErrorNotice(conversationID string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(conversationID)
	if conv == nil {
		return
	}
	now := time.Now()
	conv.Messages = append(conv.Messages, warden.ErrorNotice{
		Text:      fmt.Sprintf("Error: %v. Please check your connection and try again.", cause),
		Timestamp: now,
	})
	conv.UpdatedAt = now
}

// findLocked returns the conversation with the given ID. Callers must hold mu.
func (s *Store) findLocked(conversationID string) *warden.Conversation {
	if conversationID == "" {
		return nil
	}
	for _, conv := range s.conversations {
		if conv.ID == conversationID {
			return conv
		}
	}
	return nil
}

func copyConversation(conv *warden.Conversation) warden.Conversation {
	out := *conv
	out.Messages = slices.Clone(conv.Messages)
	out.Tools = conv.Tools.Union(nil)
	return out
}
