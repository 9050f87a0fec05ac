package warden

import (
	"context"
	"time"
)

// Credentials authenticate an existing user.
type Credentials struct {
	Username string
	Password string
}

// Profile registers a new user.
type Profile struct {
	Name     string
	Username string
	Email    string
	Password string
}

// SendRequest carries one user query to the remote store. An empty
// ConversationID asks the remote to create an implicit conversation and
// assign its ID.
type SendRequest struct {
	ConversationID string
	Query          string
	Tools          []string
}

// SendResult is the parsed chat-send payload. Exactly one of Response or
// ToolCall is meaningful; when ToolCall is set, Validation and ToolOutput
// accompany it.
type SendResult struct {
	ConversationID string
	Response       string
	ToolCall       *ToolCall
	Validation     string
	ToolOutput     string
}

// ConversationSummary is one entry of the remote conversation list. Message
// histories are fetched separately per conversation.
type ConversationSummary struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Tools     []string
}

// Remote is the fixed contract to the authoritative remote store.
// Implementations attach the current credential, normalize failures to this
// package's error taxonomy, and perform no business-logic interpretation:
//
//   - an unauthorized response on an authenticated call notifies the bound
//     ExpiryNotifier and fails with ErrSessionExpired before any payload parse
//   - any other non-success response fails with *RemoteError
//   - a transport failure with no response fails with ErrNetwork
//   - rejected login or registration fails with *AuthError
type Remote interface {
	Login(ctx context.Context, creds Credentials) (Session, error)
	Register(ctx context.Context, profile Profile) (Session, error)
	Me(ctx context.Context) (Session, error)

	SendMessage(ctx context.Context, req SendRequest) (SendResult, error)
	CreateConversation(ctx context.Context, title string, tools []string) (string, error)
	ListConversations(ctx context.Context) ([]ConversationSummary, error)
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	LaunchTools(ctx context.Context, conversationID string, tools []string) error

	RequestPasswordReset(ctx context.Context, email string) (resetToken string, err error)
	RedeemPasswordReset(ctx context.Context, token, newPassword string) error
}

// CredentialSource supplies the bearer token attached to outgoing calls.
// An empty token means the call goes out unauthenticated.
type CredentialSource interface {
	Token() string
}

// ExpiryNotifier receives the unauthorized-response signal from a Remote
// implementation. It is the single funnel for session-expiry handling; the
// implementation must tolerate duplicate notifications from concurrent
// in-flight calls.
type ExpiryNotifier interface {
	HandleUnauthorized()
}
