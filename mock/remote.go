// Package mock provides test doubles for warden interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/warden"
	"github.com/fwojciec/warden/session"
)

// Interface compliance checks.
var (
	_ warden.Remote           = (*Remote)(nil)
	_ session.CredentialStore = (*CredentialStore)(nil)
)

// Remote is a test double for warden.Remote.
// Set the function fields for the methods you need.
type Remote struct {
	LoginFn                func(ctx context.Context, creds warden.Credentials) (warden.Session, error)
	RegisterFn             func(ctx context.Context, profile warden.Profile) (warden.Session, error)
	MeFn                   func(ctx context.Context) (warden.Session, error)
	SendMessageFn          func(ctx context.Context, req warden.SendRequest) (warden.SendResult, error)
	CreateConversationFn   func(ctx context.Context, title string, tools []string) (string, error)
	ListConversationsFn    func(ctx context.Context) ([]warden.ConversationSummary, error)
	ListMessagesFn         func(ctx context.Context, conversationID string) ([]warden.Message, error)
	DeleteConversationFn   func(ctx context.Context, conversationID string) error
	LaunchToolsFn          func(ctx context.Context, conversationID string, tools []string) error
	RequestPasswordResetFn func(ctx context.Context, email string) (string, error)
	RedeemPasswordResetFn  func(ctx context.Context, token, newPassword string) error
}

// Login delegates to LoginFn.
func (r *Remote) Login(ctx context.Context, creds warden.Credentials) (warden.Session, error) {
	return r.LoginFn(ctx, creds)
}

// Register delegates to RegisterFn.
func (r *Remote) Register(ctx context.Context, profile warden.Profile) (warden.Session, error) {
	return r.RegisterFn(ctx, profile)
}

// Me delegates to MeFn.
func (r *Remote) Me(ctx context.Context) (warden.Session, error) {
	return r.MeFn(ctx)
}

// SendMessage delegates to SendMessageFn.
func (r *Remote) SendMessage(ctx context.Context, req warden.SendRequest) (warden.SendResult, error) {
	return r.SendMessageFn(ctx, req)
}

// CreateConversation delegates to CreateConversationFn.
func (r *Remote) CreateConversation(ctx context.Context, title string, tools []string) (string, error) {
	return r.CreateConversationFn(ctx, title, tools)
}

// ListConversations delegates to ListConversationsFn.
func (r *Remote) ListConversations(ctx context.Context) ([]warden.ConversationSummary, error) {
	return r.ListConversationsFn(ctx)
}

// ListMessages delegates to ListMessagesFn.
func (r *Remote) ListMessages(ctx context.Context, conversationID string) ([]warden.Message, error) {
	return r.ListMessagesFn(ctx, conversationID)
}

// DeleteConversation delegates to DeleteConversationFn.
func (r *Remote) DeleteConversation(ctx context.Context, conversationID string) error {
	return r.DeleteConversationFn(ctx, conversationID)
}

// LaunchTools delegates to LaunchToolsFn.
func (r *Remote) LaunchTools(ctx context.Context, conversationID string, tools []string) error {
	return r.LaunchToolsFn(ctx, conversationID, tools)
}

// RequestPasswordReset delegates to RequestPasswordResetFn.
func (r *Remote) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	return r.RequestPasswordResetFn(ctx, email)
}

// RedeemPasswordReset delegates to RedeemPasswordResetFn.
func (r *Remote) RedeemPasswordReset(ctx context.Context, token, newPassword string) error {
	return r.RedeemPasswordResetFn(ctx, token, newPassword)
}

// CredentialStore is a test double for session.CredentialStore.
// Set the function fields for the methods you need.
type CredentialStore struct {
	LoadFn  func() (warden.Session, error)
	SaveFn  func(warden.Session) error
	ClearFn func() error
}

// Load delegates to LoadFn.
func (s *CredentialStore) Load() (warden.Session, error) {
	return s.LoadFn()
}

// Save delegates to SaveFn.
func (s *CredentialStore) Save(sess warden.Session) error {
	return s.SaveFn(sess)
}

// Clear delegates to ClearFn.
func (s *CredentialStore) Clear() error {
	return s.ClearFn()
}
