// Package credfile persists the credential record as a versioned JSON file
// in the user's home directory.
package credfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/warden"
	"github.com/fwojciec/warden/session"
)

// Interface compliance check.
var _ session.CredentialStore = (*Store)(nil)

// envelopeVersion guards the on-disk format. Bump it when the record shape
// changes incompatibly; unknown versions fail Load.
const envelopeVersion = 1

type envelope struct {
	Version int    `json:"version"`
	Session record `json:"session"`
}

type record struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token"`
	Provider    string `json:"provider"`
}

// Store reads and writes the credential record at a fixed path. The file and
// its directory are private to the user: tokens grant full account access.
type Store struct {
	path string
}

// New creates a Store writing to the given path.
func New(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the conventional credential file location under the
// user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".warden", "credentials.json"), nil
}

// Load reads the persisted credential record. A missing file reports an error
// matching fs.ErrNotExist.
func (s *Store) Load() (warden.Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return warden.Session{}, fmt.Errorf("read credential file: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return warden.Session{}, fmt.Errorf("parse credential file: %w", err)
	}
	if env.Version != envelopeVersion {
		return warden.Session{}, fmt.Errorf("unsupported credential file version %d", env.Version)
	}
	return warden.Session{
		UserID:      env.Session.UserID,
		Username:    env.Session.Username,
		DisplayName: env.Session.DisplayName,
		Token:       env.Session.Token,
		Provider:    env.Session.Provider,
	}, nil
}

// Save writes the credential record atomically: the file appears complete or
// not at all, never half-written.
func (s *Store) Save(sess warden.Session) error {
	env := envelope{
		Version: envelopeVersion,
		Session: record{
			UserID:      sess.UserID,
			Username:    sess.Username,
			DisplayName: sess.DisplayName,
			Token:       sess.Token,
			Provider:    sess.Provider,
		},
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp credential file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

// Clear removes the credential record. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
