package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/fwojciec/warden"
)

// Interface compliance check.
var _ warden.Remote = (*Client)(nil)

// Client implements [warden.Remote] for the assistant service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.RWMutex
	creds    warden.CredentialSource
	notifier warden.ExpiryNotifier
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new [Client] for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Bind attaches the credential source consulted on every authenticated call
// and the notifier that receives unauthorized-response signals. Bind must be
// called before authenticated calls are issued; it exists because the session
// manager and the client reference each other.
func (c *Client) Bind(creds warden.CredentialSource, notifier warden.ExpiryNotifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
	c.notifier = notifier
}

// Login exchanges credentials for a session. A rejected login fails with
// [warden.AuthError]; it never trips the expiry funnel because no session
// token was attached to the call.
func (c *Client) Login(ctx context.Context, creds warden.Credentials) (warden.Session, error) {
	var resp authResponse
	err := c.doAnon(ctx, http.MethodPost, loginPath, loginRequest{
		Username: creds.Username,
		Password: creds.Password,
	}, &resp)
	if err != nil {
		return warden.Session{}, authFailure(err)
	}
	return sessionFromAuth(resp), nil
}

// Register creates a new account and returns its session.
func (c *Client) Register(ctx context.Context, profile warden.Profile) (warden.Session, error) {
	var resp authResponse
	err := c.doAnon(ctx, http.MethodPost, registerPath, registerRequest{
		Name:     profile.Name,
		Username: profile.Username,
		Email:    profile.Email,
		Password: profile.Password,
	}, &resp)
	if err != nil {
		return warden.Session{}, authFailure(err)
	}
	return sessionFromAuth(resp), nil
}

// Me returns the authenticated user's identity. The returned session carries
// no token.
func (c *Client) Me(ctx context.Context) (warden.Session, error) {
	var resp meResponse
	if err := c.do(ctx, http.MethodGet, mePath, nil, &resp); err != nil {
		return warden.Session{}, err
	}
	return warden.Session{
		UserID:      resp.User.ID,
		Username:    resp.User.Username,
		DisplayName: resp.User.Name,
		Provider:    providerOrLocal(resp.User.Provider),
	}, nil
}

// Health reports whether the service is reachable. It carries no credential
// and parses no payload.
func (c *Client) Health(ctx context.Context) error {
	return c.doAnon(ctx, http.MethodGet, "/", nil, nil)
}

// SendMessage submits one user query and returns the parsed payload
// unchanged; interpretation belongs to the conversation store.
func (c *Client) SendMessage(ctx context.Context, req warden.SendRequest) (warden.SendResult, error) {
	var resp chatResponse
	err := c.do(ctx, http.MethodPost, chatPath, chatRequest{
		Query:  req.Query,
		ChatID: req.ConversationID,
		Tools:  toolsOrEmpty(req.Tools),
	}, &resp)
	if err != nil {
		return warden.SendResult{}, err
	}
	if !resp.Success {
		return warden.SendResult{}, &warden.RemoteError{Status: http.StatusOK, Message: resp.Error}
	}
	result := warden.SendResult{
		ConversationID: resp.ChatID,
		Response:       resp.Response,
		Validation:     resp.ToolValidation,
		ToolOutput:     resp.ToolOutput,
	}
	if resp.ToolCall != nil {
		result.ToolCall = &warden.ToolCall{
			Name: resp.ToolCall.Name,
			Args: resp.ToolCall.Args,
			ID:   resp.ToolCall.ID,
		}
	}
	return result, nil
}

// CreateConversation creates a conversation and returns its server-assigned ID.
func (c *Client) CreateConversation(ctx context.Context, title string, tools []string) (string, error) {
	var resp createChatResponse
	err := c.do(ctx, http.MethodPost, createChatPath, createChatRequest{
		Title: title,
		Tools: toolsOrEmpty(tools),
	}, &resp)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &warden.RemoteError{Status: http.StatusOK, Message: resp.Error}
	}
	return resp.ChatID, nil
}

// ListConversations returns conversation summaries in remote-defined order.
func (c *Client) ListConversations(ctx context.Context) ([]warden.ConversationSummary, error) {
	var resp chatsResponse
	if err := c.do(ctx, http.MethodGet, chatsPath, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &warden.RemoteError{Status: http.StatusOK, Message: resp.Error}
	}
	summaries := make([]warden.ConversationSummary, len(resp.Chats))
	for i, dto := range resp.Chats {
		summaries[i] = warden.ConversationSummary{
			ID:        dto.ID,
			Title:     dto.Title,
			CreatedAt: parseTimestamp(dto.CreatedAt),
			UpdatedAt: parseTimestamp(dto.UpdatedAt),
			Tools:     dto.Tools,
		}
	}
	return summaries, nil
}

// ListMessages returns the full message sequence for one conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]warden.Message, error) {
	var resp messagesResponse
	path := chatsPath + "/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &warden.RemoteError{Status: http.StatusOK, Message: resp.Error}
	}
	msgs := make([]warden.Message, 0, len(resp.Messages))
	for i, dto := range resp.Messages {
		msg, err := decodeMessage(dto)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// DeleteConversation removes a conversation from the remote store.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	var resp successResponse
	path := chatsPath + "/" + url.PathEscape(conversationID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &warden.RemoteError{Status: http.StatusOK, Message: resp.Error}
	}
	return nil
}

// LaunchTools activates tools for a conversation on the remote store.
func (c *Client) LaunchTools(ctx context.Context, conversationID string, tools []string) error {
	var resp successResponse
	err := c.do(ctx, http.MethodPost, launchToolsPath, launchToolsRequest{
		ChatID: conversationID,
		Tools:  toolsOrEmpty(tools),
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return &warden.RemoteError{Status: http.StatusOK, Message: resp.Error}
	}
	return nil
}

// RequestPasswordReset asks for a reset email. In development mode the remote
// returns the reset token directly; it is passed through when present.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	var resp forgotPasswordResponse
	err := c.doAnon(ctx, http.MethodPost, forgotPasswordPath, forgotPasswordRequest{Email: email}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ResetToken, nil
}

// RedeemPasswordReset exchanges a reset token for a new password.
func (c *Client) RedeemPasswordReset(ctx context.Context, token, newPassword string) error {
	var resp successResponse
	return c.doAnon(ctx, http.MethodPost, resetPasswordPath, resetPasswordRequest{
		Token:       token,
		NewPassword: newPassword,
	}, &resp)
}

// do issues an authenticated request. An unauthorized response notifies the
// bound ExpiryNotifier and fails with ErrSessionExpired before any payload
// parse.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.roundTrip(ctx, method, path, body, out, true)
}

// doAnon issues an unauthenticated request. A 401 here means the request
// itself was rejected, not that the session expired, so the expiry funnel is
// bypassed.
func (c *Client) doAnon(ctx context.Context, method, path string, body, out any) error {
	return c.roundTrip(ctx, method, path, body, out, false)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: marshal: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %s: %w", method, path, err, warden.ErrNetwork)
	}
	defer resp.Body.Close()

	if authed && resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("remote rejected session token", "method", method, "path", path)
		c.notifyUnauthorized()
		return fmt.Errorf("%s %s: %w", method, path, warden.ErrSessionExpired)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseRemoteError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.creds == nil {
		return ""
	}
	return c.creds.Token()
}

func (c *Client) notifyUnauthorized() {
	c.mu.RLock()
	notifier := c.notifier
	c.mu.RUnlock()
	if notifier != nil {
		notifier.HandleUnauthorized()
	}
}

func parseRemoteError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &warden.RemoteError{Status: resp.StatusCode}
	}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &warden.RemoteError{Status: resp.StatusCode}
	}
	return &warden.RemoteError{Status: resp.StatusCode, Message: parsed.text()}
}

// authFailure maps rejected login/register responses to AuthError. Transport
// failures and server errors keep their original kind.
func authFailure(err error) error {
	var remote *warden.RemoteError
	if errors.As(err, &remote) && remote.Status >= 400 && remote.Status < 500 {
		return &warden.AuthError{Message: remote.Message}
	}
	return err
}

func toolsOrEmpty(tools []string) []string {
	if tools == nil {
		return []string{}
	}
	return tools
}
