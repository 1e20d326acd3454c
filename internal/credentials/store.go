package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/estatehq/estatectl/internal/api"
)

// Storage layout matches the console's persisted state: one entry per file,
// all cleared together on logout.
const (
	tokenEntry   = "auth_token"
	userEntry    = "user"
	expiresEntry = "token_expires_at"
)

// ErrInvalidBaseDir is returned when the store directory cannot be created.
var ErrInvalidBaseDir = errors.New("invalid credentials directory")

// State holds the persisted session entries. A zero ExpiresAt means the token
// does not expire. Token and User are saved and cleared as a group; a State
// with only some fields set performs a partial save.
type State struct {
	Token     string
	User      *api.User
	ExpiresAt time.Time
}

// IsExpired returns true if the stored token has an expiry in the past.
func (s State) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Store persists session credentials on the local filesystem so a session
// survives process restarts.
type Store struct {
	baseDir string
}

// NewStore creates a new credential store.
// If baseDir is empty, uses ~/.estatectl/session/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".estatectl", "session")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseDir, err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("credential store initialized")

	return &Store{baseDir: baseDir}, nil
}

// Load reads the stored session state. A stored expiry in the past clears the
// store and yields an empty state, so a reload never resurrects a dead
// session. Any read failure also degrades to an empty state; an unreadable
// store must look like an anonymous session, never an error.
func (s *Store) Load() State {
	token, err := os.ReadFile(filepath.Join(s.baseDir, tokenEntry))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("failed to read stored token, treating session as anonymous")
		}
		return State{}
	}

	var user api.User
	userData, err := os.ReadFile(filepath.Join(s.baseDir, userEntry))
	if err != nil || json.Unmarshal(userData, &user) != nil {
		// A token without a user record is a partial session; discard both.
		log.Warn().Msg("stored session is incomplete, clearing")
		s.Clear()
		return State{}
	}

	st := State{Token: string(token), User: &user}

	if expiresData, err := os.ReadFile(filepath.Join(s.baseDir, expiresEntry)); err == nil {
		expiresAt, err := time.Parse(time.RFC3339, string(expiresData))
		if err != nil {
			log.Warn().Str("value", string(expiresData)).Msg("stored expiry is malformed, clearing session")
			s.Clear()
			return State{}
		}
		st.ExpiresAt = expiresAt
	}

	if st.IsExpired() {
		log.Debug().Time("expiresAt", st.ExpiresAt).Msg("stored token has expired, clearing session")
		s.Clear()
		return State{}
	}

	return st
}

// Save writes the given fields. Zero fields are left untouched, so a profile
// update can rewrite only the user record.
func (s *Store) Save(st State) error {
	if st.Token != "" {
		if err := s.writeEntry(tokenEntry, []byte(st.Token)); err != nil {
			return err
		}
		// A token write means a new session; a non-expiring one must not
		// inherit a previous session's expiry.
		if st.ExpiresAt.IsZero() {
			if err := os.Remove(filepath.Join(s.baseDir, expiresEntry)); err != nil && !os.IsNotExist(err) {
				log.Warn().Err(err).Msg("failed to remove stale expiry entry")
			}
		}
	}

	if st.User != nil {
		data, err := json.Marshal(st.User)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}
		if err := s.writeEntry(userEntry, data); err != nil {
			return err
		}
	}

	if !st.ExpiresAt.IsZero() {
		if err := s.writeEntry(expiresEntry, []byte(st.ExpiresAt.UTC().Format(time.RFC3339))); err != nil {
			return err
		}
	}

	log.Debug().Str("baseDir", s.baseDir).Msg("session state saved")

	return nil
}

// Clear removes all stored entries unconditionally.
func (s *Store) Clear() {
	for _, entry := range []string{tokenEntry, userEntry, expiresEntry} {
		if err := os.Remove(filepath.Join(s.baseDir, entry)); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("entry", entry).Msg("failed to remove stored entry")
		}
	}
}

// writeEntry writes a single entry atomically.
func (s *Store) writeEntry(name string, data []byte) error {
	entryPath := filepath.Join(s.baseDir, name)
	tempPath := entryPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, entryPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save %s: %w", name, err)
	}

	return nil
}
