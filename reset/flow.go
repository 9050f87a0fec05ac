// Package reset drives the password-reset state machine: request a reset
// token by email, then redeem it with a new password.
package reset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fwojciec/warden"
)

// State identifies one phase of the password-reset flow.
type State int

const (
	// Idle means no reset is in progress.
	Idle State = iota
	// RequestSent means the reset email was requested and accepted.
	RequestSent
	// Issued means a reset token is held locally and can be redeemed.
	Issued
	// Redeeming means a redeem call is in flight.
	Redeeming
	// Redeemed means the password was changed; the flow is complete.
	Redeemed
	// Errored means the last transition failed; Request re-enters the flow.
	Errored
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RequestSent:
		return "request-sent"
	case Issued:
		return "issued"
	case Redeeming:
		return "redeeming"
	case Redeemed:
		return "redeemed"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MinPasswordLength is the shortest password the redeem step accepts.
const MinPasswordLength = 8

// Flow is the password-reset state machine. It runs entirely outside an
// authenticated session; a logged-in user never needs it.
type Flow struct {
	remote warden.Remote
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	token   string
	lastErr error
}

// Option configures a [Flow].
type Option func(*Flow)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

// NewFlow creates an idle Flow backed by the given remote.
func NewFlow(remote warden.Remote, opts ...Option) *Flow {
	f := &Flow{
		remote: remote,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// State returns the current phase.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Token returns the held reset token, if any.
func (f *Flow) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// Err returns the failure that moved the flow to Errored, if any.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Request asks the remote store to issue a reset token for the given email.
// It is valid from any state, so a failed flow retries by simply requesting
// again. When the remote returns the token directly (development mode), the
// flow advances straight to Issued; otherwise the user is expected to arrive
// with a token out of band and seed it via SeedToken.
func (f *Flow) Request(ctx context.Context, email string) error {
	if email == "" {
		return f.fail(fmt.Errorf("email is required: %w", warden.ErrValidation))
	}

	token, err := f.remote.RequestPasswordReset(ctx, email)
	if err != nil {
		f.logger.Warn("password reset request failed", "error", err)
		return f.fail(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastErr = nil
	f.token = token
	if token != "" {
		f.state = Issued
	} else {
		f.state = RequestSent
	}
	f.logger.Info("password reset requested", "state", f.state.String())
	return nil
}

// SeedToken installs a token obtained out of band, such as from an emailed
// link, and moves the flow to Issued. An empty token fails without a remote
// call.
func (f *Flow) SeedToken(token string) error {
	if token == "" {
		return fmt.Errorf("reset token is required: %w", warden.ErrValidation)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.state = Issued
	f.lastErr = nil
	return nil
}

// Redeem exchanges the held token for a new password. All local checks run
// before any remote call: a missing token, a password shorter than
// [MinPasswordLength], or a confirmation mismatch fails with
// [warden.ErrValidation] and issues zero remote calls. A remote failure moves
// the flow to Errored; success moves it to Redeemed and discards the token.
func (f *Flow) Redeem(ctx context.Context, newPassword, confirm string) error {
	f.mu.Lock()
	token := f.token
	f.mu.Unlock()

	if token == "" {
		return f.fail(fmt.Errorf("reset token is required: %w", warden.ErrValidation))
	}
	if len(newPassword) < MinPasswordLength {
		return f.fail(fmt.Errorf("password must be at least %d characters: %w", MinPasswordLength, warden.ErrValidation))
	}
	if newPassword != confirm {
		return f.fail(fmt.Errorf("passwords do not match: %w", warden.ErrValidation))
	}

	f.setState(Redeeming)
	if err := f.remote.RedeemPasswordReset(ctx, token, newPassword); err != nil {
		f.logger.Warn("password reset redeem failed", "error", err)
		return f.fail(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Redeemed
	f.token = ""
	f.lastErr = nil
	f.logger.Info("password reset redeemed")
	return nil
}

// Reset returns the flow to Idle, discarding any held token.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Idle
	f.token = ""
	f.lastErr = nil
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

func (f *Flow) fail(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Errored
	f.lastErr = err
	return err
}
