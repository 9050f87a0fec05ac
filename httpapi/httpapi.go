// Package httpapi implements [warden.Remote] over the assistant service's
// JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/warden"
)

const (
	loginPath          = "/api/auth/login"
	registerPath       = "/api/auth/register"
	mePath             = "/api/auth/me"
	forgotPasswordPath = "/api/auth/forgot-password"
	resetPasswordPath  = "/api/auth/reset-password"
	chatPath           = "/api/chat"
	chatsPath          = "/api/chats"
	createChatPath     = "/api/chats/create"
	launchToolsPath    = "/api/launch-tools"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Provider string `json:"provider"`
}

type authResponse struct {
	AccessToken string  `json:"access_token"`
	User        userDTO `json:"user"`
}

type meResponse struct {
	User userDTO `json:"user"`
}

type chatRequest struct {
	Query  string   `json:"query"`
	ChatID string   `json:"chat_id,omitempty"`
	Tools  []string `json:"tools"`
}

type toolCallDTO struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
	ID   string          `json:"id"`
}

type chatResponse struct {
	Success        bool         `json:"success"`
	ChatID         string       `json:"chat_id"`
	Response       string       `json:"response"`
	ToolCall       *toolCallDTO `json:"tool_call"`
	ToolValidation string       `json:"tool_validation"`
	ToolOutput     string       `json:"tool_output"`
	Error          string       `json:"error"`
}

type chatSummaryDTO struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
	Tools     []string `json:"tools"`
}

type chatsResponse struct {
	Success bool             `json:"success"`
	Chats   []chatSummaryDTO `json:"chats"`
	Error   string           `json:"error"`
}

// messageDTO is the wire shape of one stored timeline entry. Sender
// discriminates the variant; assistant entries carry a nested response object.
type messageDTO struct {
	Sender    string       `json:"sender"`
	Text      string       `json:"text"`
	Response  *responseDTO `json:"response"`
	Timestamp string       `json:"timestamp"`
}

type responseDTO struct {
	Type     string       `json:"type"`
	Text     string       `json:"text"`
	ToolData *toolDataDTO `json:"toolData"`
}

type toolDataDTO struct {
	ToolCall   toolCallDTO `json:"toolCall"`
	Validation string      `json:"validation"`
	Output     string      `json:"output"`
}

type messagesResponse struct {
	Success  bool         `json:"success"`
	Messages []messageDTO `json:"messages"`
	Error    string       `json:"error"`
}

type createChatRequest struct {
	Title string   `json:"title"`
	Tools []string `json:"tools"`
}

type createChatResponse struct {
	Success bool   `json:"success"`
	ChatID  string `json:"chat_id"`
	Error   string `json:"error"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type launchToolsRequest struct {
	ChatID string   `json:"chat_id"`
	Tools  []string `json:"tools"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type forgotPasswordResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	ResetToken string `json:"reset_token"`
	Error      string `json:"error"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// errorBody is the shape of remote failure payloads. The auth endpoints use
// "detail", the chat endpoints use "error", older routes use "message".
type errorBody struct {
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (b errorBody) text() string {
	switch {
	case b.Detail != "":
		return b.Detail
	case b.Error != "":
		return b.Error
	default:
		return b.Message
	}
}

func sessionFromAuth(resp authResponse) warden.Session {
	return warden.Session{
		UserID:      resp.User.ID,
		Username:    resp.User.Username,
		DisplayName: resp.User.Name,
		Token:       resp.AccessToken,
		Provider:    providerOrLocal(resp.User.Provider),
	}
}

func providerOrLocal(p string) string {
	if p == "" {
		return "local"
	}
	return p
}

// parseTimestamp tolerates the timestamp formats the service has emitted over
// time. Unparseable values become the zero time rather than an error.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// decodeMessage converts a wire timeline entry into its domain variant.
func decodeMessage(dto messageDTO) (warden.Message, error) {
	at := parseTimestamp(dto.Timestamp)
	switch dto.Sender {
	case "user":
		return warden.UserText{Text: dto.Text, Timestamp: at}, nil
	case "system":
		return warden.SystemNotice{Text: dto.Text, Timestamp: at}, nil
	case "ai":
		if dto.Response != nil && dto.Response.Type == "tool_execution" && dto.Response.ToolData != nil {
			td := dto.Response.ToolData
			return warden.AssistantToolExecution{
				Call: warden.ToolCall{
					Name: td.ToolCall.Name,
					Args: td.ToolCall.Args,
					ID:   td.ToolCall.ID,
				},
				Validation: td.Validation,
				Output:     td.Output,
				Timestamp:  at,
			}, nil
		}
		text := dto.Text
		if dto.Response != nil && dto.Response.Text != "" {
			text = dto.Response.Text
		}
		return warden.AssistantText{Text: text, Timestamp: at}, nil
	default:
		return nil, fmt.Errorf("unknown message sender: %q", dto.Sender)
	}
}
