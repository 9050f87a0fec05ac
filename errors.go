package warden

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a local precondition failed before any remote call.
	ErrValidation = errors.New("validation error")

	// ErrInvalidArgument indicates caller misuse, such as an empty tool set.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSessionExpired indicates the remote store rejected the session token.
	ErrSessionExpired = errors.New("session expired")

	// ErrNetwork indicates a transport failure with no remote response.
	ErrNetwork = errors.New("network error")
)

// AuthError indicates rejected credentials or a registration conflict.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "auth: " + e.Message
}

// RemoteError is a non-success remote response carrying the remote-supplied
// message when one was present.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("remote error: HTTP %d: %s", e.Status, e.Message)
}
