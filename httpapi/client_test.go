package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwojciec/warden"
	"github.com/fwojciec/warden/httpapi"
)

// tokenFunc implements warden.CredentialSource.
type tokenFunc func() string

func (f tokenFunc) Token() string { return f() }

// notifierSpy implements warden.ExpiryNotifier.
type notifierSpy struct {
	calls int
}

func (n *notifierSpy) HandleUnauthorized() { n.calls++ }

func newClient(t *testing.T, handler http.Handler, token string) (*httpapi.Client, *notifierSpy) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := httpapi.New(srv.URL)
	spy := &notifierSpy{}
	c.Bind(tokenFunc(func() string { return token }), spy)
	return c, spy
}

func TestClient_Login(t *testing.T) {
	t.Parallel()

	t.Run("parses the session", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/auth/login", r.URL.Path)
			assert.Empty(t, r.Header.Get("Authorization"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ada", body["username"])
			assert.Equal(t, "pw", body["password"])
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok-1",
				"user": map[string]string{
					"id":       "u1",
					"name":     "Ada Lovelace",
					"username": "ada",
				},
			})
		})
		c, _ := newClient(t, handler, "")

		sess, err := c.Login(context.Background(), warden.Credentials{Username: "ada", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, warden.Session{
			UserID:      "u1",
			Username:    "ada",
			DisplayName: "Ada Lovelace",
			Token:       "tok-1",
			Provider:    "local",
		}, sess)
	})

	t.Run("rejected credentials map to AuthError, not the expiry funnel", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Incorrect username or password"})
		})
		c, spy := newClient(t, handler, "")

		_, err := c.Login(context.Background(), warden.Credentials{Username: "ada", Password: "wrong"})
		var authErr *warden.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "Incorrect username or password", authErr.Message)
		assert.NotErrorIs(t, err, warden.ErrSessionExpired)
		assert.Zero(t, spy.calls)
	})

	t.Run("server errors keep their kind", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		c, _ := newClient(t, handler, "")

		_, err := c.Login(context.Background(), warden.Credentials{})
		var remoteErr *warden.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, http.StatusInternalServerError, remoteErr.Status)
	})
}

func TestClient_Register(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/register", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Username already registered"})
	})
	c, _ := newClient(t, handler, "")

	_, err := c.Register(context.Background(), warden.Profile{Username: "ada"})
	var authErr *warden.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Username already registered", authErr.Message)
}

func TestClient_ExpiryFunnel(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stale-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	})
	c, spy := newClient(t, handler, "stale-token")

	_, err := c.ListConversations(context.Background())
	assert.ErrorIs(t, err, warden.ErrSessionExpired)
	assert.Equal(t, 1, spy.calls)

	err = c.DeleteConversation(context.Background(), "c1")
	assert.ErrorIs(t, err, warden.ErrSessionExpired)
	assert.Equal(t, 2, spy.calls)
}

func TestClient_NetworkError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing is listening anymore

	c := httpapi.New(url)
	spy := &notifierSpy{}
	c.Bind(tokenFunc(func() string { return "tok" }), spy)

	_, err := c.ListConversations(context.Background())
	assert.ErrorIs(t, err, warden.ErrNetwork)
	assert.Zero(t, spy.calls)
}

func TestClient_RemoteError(t *testing.T) {
	t.Parallel()

	t.Run("parses the error payload", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"detail": "query is required"})
		})
		c, _ := newClient(t, handler, "tok")

		_, err := c.SendMessage(context.Background(), warden.SendRequest{})
		var remoteErr *warden.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, http.StatusUnprocessableEntity, remoteErr.Status)
		assert.Equal(t, "query is required", remoteErr.Message)
	})

	t.Run("tolerates an unparseable body", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>bad gateway</html>"))
		})
		c, _ := newClient(t, handler, "tok")

		_, err := c.ListConversations(context.Background())
		var remoteErr *warden.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, http.StatusBadGateway, remoteErr.Status)
		assert.Empty(t, remoteErr.Message)
	})

	t.Run("success false envelope becomes a RemoteError", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "model overloaded"})
		})
		c, _ := newClient(t, handler, "tok")

		_, err := c.SendMessage(context.Background(), warden.SendRequest{Query: "hi"})
		var remoteErr *warden.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, "model overloaded", remoteErr.Message)
	})
}

func TestClient_SendMessage(t *testing.T) {
	t.Parallel()

	t.Run("sends the wire payload", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/chat", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "scan example.com", body["query"])
			assert.Equal(t, "c1", body["chat_id"])
			// Tools must serialize as an array even when empty.
			assert.Equal(t, []any{}, body["tools"])
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"chat_id": "c1",
				"response": "on it",
			})
		})
		c, _ := newClient(t, handler, "tok")

		result, err := c.SendMessage(context.Background(), warden.SendRequest{
			ConversationID: "c1",
			Query:          "scan example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "c1", result.ConversationID)
		assert.Equal(t, "on it", result.Response)
		assert.Nil(t, result.ToolCall)
	})

	t.Run("omits chat_id for an implicit conversation", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			_, present := body["chat_id"]
			assert.False(t, present)
			json.NewEncoder(w).Encode(map[string]any{"success": true, "chat_id": "c9", "response": "hi"})
		})
		c, _ := newClient(t, handler, "tok")

		result, err := c.SendMessage(context.Background(), warden.SendRequest{Query: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "c9", result.ConversationID)
	})

	t.Run("parses a tool call result", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"chat_id": "c1",
				"tool_call": map[string]any{
					"name": "do-nmap",
					"args": map[string]string{"target": "example.com"},
					"id":   "tc-1",
				},
				"tool_validation": "approved",
				"tool_output":     "22/tcp open ssh",
			})
		})
		c, _ := newClient(t, handler, "tok")

		result, err := c.SendMessage(context.Background(), warden.SendRequest{ConversationID: "c1", Query: "scan"})
		require.NoError(t, err)
		require.NotNil(t, result.ToolCall)
		assert.Equal(t, "do-nmap", result.ToolCall.Name)
		assert.Equal(t, "tc-1", result.ToolCall.ID)
		assert.JSONEq(t, `{"target":"example.com"}`, string(result.ToolCall.Args))
		assert.Equal(t, "approved", result.Validation)
		assert.Equal(t, "22/tcp open ssh", result.ToolOutput)
	})
}

func TestClient_ListConversations(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chats", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"chats": []map[string]any{
				{
					"id":         "c1",
					"title":      "New Chat",
					"created_at": "2026-03-15T12:00:00",
					"updated_at": "2026-03-15T12:30:00Z",
					"tools":      []string{"do-nmap"},
				},
			},
		})
	})
	c, _ := newClient(t, handler, "tok")

	got, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, "New Chat", got[0].Title)
	assert.Equal(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC), got[0].CreatedAt)
	assert.Equal(t, time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC), got[0].UpdatedAt)
	assert.Equal(t, []string{"do-nmap"}, got[0].Tools)
}

func TestClient_ListMessages(t *testing.T) {
	t.Parallel()

	t.Run("decodes every variant", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/chats/c1/messages", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"messages": []map[string]any{
					{"sender": "user", "text": "scan example.com", "timestamp": "2026-03-15T12:00:00Z"},
					{"sender": "system", "text": "Tools configured and launched: Nmap Scanner.", "timestamp": "2026-03-15T12:00:01Z"},
					{
						"sender": "ai",
						"response": map[string]any{
							"type": "tool_execution",
							"toolData": map[string]any{
								"toolCall": map[string]any{
									"name": "do-nmap",
									"args": map[string]string{"target": "example.com"},
									"id":   "tc-1",
								},
								"validation": "approved",
								"output":     "22/tcp open ssh",
							},
						},
						"timestamp": "2026-03-15T12:00:05Z",
					},
					{
						"sender":    "ai",
						"response":  map[string]any{"type": "text", "text": "The scan found one open port."},
						"timestamp": "2026-03-15T12:00:06Z",
					},
				},
			})
		})
		c, _ := newClient(t, handler, "tok")

		msgs, err := c.ListMessages(context.Background(), "c1")
		require.NoError(t, err)
		require.Len(t, msgs, 4)

		user, ok := msgs[0].(warden.UserText)
		require.True(t, ok)
		assert.Equal(t, "scan example.com", user.Text)

		assert.IsType(t, warden.SystemNotice{}, msgs[1])

		exec, ok := msgs[2].(warden.AssistantToolExecution)
		require.True(t, ok)
		assert.Equal(t, "do-nmap", exec.Call.Name)
		assert.Equal(t, "approved", exec.Validation)
		assert.Equal(t, "22/tcp open ssh", exec.Output)

		text, ok := msgs[3].(warden.AssistantText)
		require.True(t, ok)
		assert.Equal(t, "The scan found one open port.", text.Text)
	})

	t.Run("fails on an unknown sender", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"success":  true,
				"messages": []map[string]any{{"sender": "robot", "text": "?"}},
			})
		})
		c, _ := newClient(t, handler, "tok")

		_, err := c.ListMessages(context.Background(), "c1")
		assert.ErrorContains(t, err, "unknown message sender")
	})
}

func TestClient_CreateConversation(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chats/create", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "New Chat", body["title"])
		json.NewEncoder(w).Encode(map[string]any{"success": true, "chat_id": "c5"})
	})
	c, _ := newClient(t, handler, "tok")

	id, err := c.CreateConversation(context.Background(), "New Chat", nil)
	require.NoError(t, err)
	assert.Equal(t, "c5", id)
}

func TestClient_LaunchTools(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/launch-tools", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "c1", body["chat_id"])
		assert.Equal(t, []any{"do-nmap"}, body["tools"])
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	c, _ := newClient(t, handler, "tok")

	require.NoError(t, c.LaunchTools(context.Background(), "c1", []string{"do-nmap"}))
}

func TestClient_PasswordReset(t *testing.T) {
	t.Parallel()

	t.Run("request passes the development token through", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/auth/forgot-password", r.URL.Path)
			assert.Empty(t, r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]any{"success": true, "reset_token": "tok-abc"})
		})
		c, _ := newClient(t, handler, "tok")

		token, err := c.RequestPasswordReset(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, "tok-abc", token)
	})

	t.Run("redeem posts the token and password", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/auth/reset-password", r.URL.Path)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "tok-abc", body["token"])
			assert.Equal(t, "longenough", body["new_password"])
			json.NewEncoder(w).Encode(map[string]any{"success": true})
		})
		c, _ := newClient(t, handler, "tok")

		require.NoError(t, c.RedeemPasswordReset(context.Background(), "tok-abc", "longenough"))
	})

	t.Run("an expired token is a remote rejection, not the expiry funnel", func(t *testing.T) {
		t.Parallel()
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid or expired reset token"})
		})
		c, spy := newClient(t, handler, "tok")

		err := c.RedeemPasswordReset(context.Background(), "stale", "longenough")
		var remoteErr *warden.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, "Invalid or expired reset token", remoteErr.Message)
		assert.Zero(t, spy.calls)
	})
}

func TestClient_Health(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})
	c, _ := newClient(t, handler, "tok")

	assert.NoError(t, c.Health(context.Background()))
}

func TestClient_Me(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]string{"id": "u1", "username": "ada", "name": "Ada Lovelace"},
		})
	})
	c, _ := newClient(t, handler, "tok")

	sess, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, "ada", sess.Username)
	assert.Empty(t, sess.Token)
}
