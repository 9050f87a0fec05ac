// Package session owns the authenticated session lifecycle: login, restore,
// logout, and the single funnel for remote-reported token expiry.
package session

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/fwojciec/warden"
)

// Interface compliance checks.
var (
	_ warden.CredentialSource = (*Manager)(nil)
	_ warden.ExpiryNotifier   = (*Manager)(nil)
)

// CredentialStore persists the credential record across restarts. Load
// reports a missing record with an error matching fs.ErrNotExist.
type CredentialStore interface {
	Load() (warden.Session, error)
	Save(warden.Session) error
	Clear() error
}

// Manager is the single source of truth for "is this client authorized". It
// owns the session token; no other component mutates it.
type Manager struct {
	remote warden.Remote
	store  CredentialStore
	logger *slog.Logger

	mu       sync.Mutex
	current  *warden.Session
	expired  bool   // set once per epoch by HandleUnauthorized
	epoch    string // correlates log lines for one authenticated period
	onExpire func()
}

// Option configures a [Manager].
type Option func(*Manager)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithExpiryFunc sets the callback invoked when the remote store rejects the
// session token. It fires at most once per authenticated epoch, regardless of
// how many in-flight calls fail concurrently. The UI uses it to force
// navigation to the unauthenticated view.
func WithExpiryFunc(f func()) Option {
	return func(m *Manager) { m.onExpire = f }
}

// NewManager creates a Manager backed by the given remote and credential store.
func NewManager(remote warden.Remote, store CredentialStore, opts ...Option) *Manager {
	m := &Manager{
		remote: remote,
		store:  store,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SetExpiryFunc replaces the expiry callback after construction. The TUI
// program that receives the signal is built after the manager, so the
// callback cannot always be supplied as an option.
func (m *Manager) SetExpiryFunc(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = f
}

// Login authenticates with the remote store and persists the credential
// record. A rejected login fails with [warden.AuthError].
func (m *Manager) Login(ctx context.Context, creds warden.Credentials) (warden.Session, error) {
	sess, err := m.remote.Login(ctx, creds)
	if err != nil {
		return warden.Session{}, err
	}
	m.adopt(sess)
	return sess, nil
}

// Register creates an account with the remote store and persists the
// credential record.
func (m *Manager) Register(ctx context.Context, profile warden.Profile) (warden.Session, error) {
	sess, err := m.remote.Register(ctx, profile)
	if err != nil {
		return warden.Session{}, err
	}
	m.adopt(sess)
	return sess, nil
}

// Restore reconstructs the session from the persisted credential record
// without contacting the remote store, so the UI can render instantly at
// process start. It reports false when no stored credential exists.
func (m *Manager) Restore() (warden.Session, bool) {
	sess, err := m.store.Load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("failed to load credential record", "error", err)
		}
		return warden.Session{}, false
	}
	if sess.Token == "" {
		return warden.Session{}, false
	}

	m.mu.Lock()
	m.current = &sess
	m.expired = false
	m.epoch = uuid.NewString()
	epoch := m.epoch
	m.mu.Unlock()

	m.logger.Info("session restored", "user", sess.Username, "epoch", epoch)
	return sess, true
}

// Refresh fetches the authenticated identity and folds the display fields
// into the current session, keeping the token. A restored record can be
// stale when the profile changed on another device; a failed refresh leaves
// the session as it was.
func (m *Manager) Refresh(ctx context.Context) error {
	if !m.IsAuthenticated() {
		return nil
	}
	fetched, err := m.remote.Me(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.current != nil {
		m.current.UserID = fetched.UserID
		m.current.Username = fetched.Username
		m.current.DisplayName = fetched.DisplayName
		m.current.Provider = fetched.Provider
	}
	m.mu.Unlock()
	return nil
}

// Current returns the live session, if any.
func (m *Manager) Current() (warden.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return warden.Session{}, false
	}
	return *m.current, true
}

// IsAuthenticated reports whether a token is present, independent of whether
// that token is still valid server-side.
func (m *Manager) IsAuthenticated() bool {
	return m.Token() != ""
}

// Token implements [warden.CredentialSource].
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

// Expired reports whether the current epoch ended with a remote-reported
// token rejection, as opposed to an explicit logout.
func (m *Manager) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired
}

// Logout clears the persisted credential record and the in-memory session
// unconditionally. It never fails; persistence errors are logged and dropped.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear credential record", "error", err)
	}
}

// HandleUnauthorized implements [warden.ExpiryNotifier]: the single funnel
// for remote-reported token expiry. It logs out and fires the expiry callback
// exactly once per authenticated epoch; duplicate notifications from
// concurrent in-flight calls are suppressed. The funnel re-arms on the next
// successful login, register, or restore.
func (m *Manager) HandleUnauthorized() {
	m.mu.Lock()
	if m.current == nil || m.expired {
		m.mu.Unlock()
		return
	}
	m.expired = true
	m.current = nil
	epoch := m.epoch
	onExpire := m.onExpire
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear credential record", "error", err)
	}
	m.logger.Info("session expired, forced logout", "epoch", epoch)

	if onExpire != nil {
		onExpire()
	}
}

// adopt installs a freshly authenticated session and persists it.
func (m *Manager) adopt(sess warden.Session) {
	m.mu.Lock()
	m.current = &sess
	m.expired = false
	m.epoch = uuid.NewString()
	epoch := m.epoch
	m.mu.Unlock()

	if err := m.store.Save(sess); err != nil {
		// Login still succeeds; the session just won't survive a restart.
		m.logger.Warn("failed to persist credential record", "error", err)
	}
	m.logger.Info("session established", "user", sess.Username, "epoch", epoch)
}
