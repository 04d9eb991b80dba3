package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danieljhkim/bundlever/internal/fsops"
)

// SessionStore provides an interface for persisting sessions and preferences.
type SessionStore interface {
	// LoadSession loads the session for the given session ID.
	// Returns os.ErrNotExist if the session doesn't exist.
	LoadSession(id string) (*Session, error)

	// SaveSession saves the session atomically.
	SaveSession(id string, session *Session) error

	// DeleteSession deletes the session file.
	DeleteSession(id string) error

	// LoadPreferences loads the preferences, returning empty ones if none exist.
	LoadPreferences() (*Preferences, error)

	// SavePreferences saves the preferences atomically.
	SavePreferences(prefs *Preferences) error
}

// FileSessionStore implements SessionStore using JSON files on disk.
type FileSessionStore struct {
	fs          fsops.FS
	sessionsDir string
}

// NewFileSessionStore creates a new FileSessionStore.
func NewFileSessionStore(fs fsops.FS, sessionsDir string) *FileSessionStore {
	return &FileSessionStore{
		fs:          fs,
		sessionsDir: sessionsDir,
	}
}

// LoadSession loads the session for the given session ID.
func (s *FileSessionStore) LoadSession(id string) (*Session, error) {
	path, err := s.sessionPath(id)
	if err != nil {
		return nil, err
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Pending == nil {
		session.Pending = make(map[string]PendingEdit)
	}

	return &session, nil
}

// SaveSession saves the session atomically.
func (s *FileSessionStore) SaveSession(id string, session *Session) error {
	path, err := s.sessionPath(id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.fs.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	return nil
}

// DeleteSession deletes the session file.
func (s *FileSessionStore) DeleteSession(id string) error {
	path, err := s.sessionPath(id)
	if err != nil {
		return err
	}

	exists, err := s.fs.Exists(path)
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if !exists {
		return nil
	}

	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// LoadPreferences loads the preferences.
func (s *FileSessionStore) LoadPreferences() (*Preferences, error) {
	data, err := s.fs.ReadFile(s.preferencesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Preferences{}, nil
		}
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}

	return &prefs, nil
}

// SavePreferences saves the preferences atomically.
func (s *FileSessionStore) SavePreferences(prefs *Preferences) error {
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	if err := s.fs.AtomicWrite(s.preferencesPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}

	return nil
}

// sessionPath rejects IDs that could escape the sessions directory.
func (s *FileSessionStore) sessionPath(id string) (string, error) {
	if err := s.fs.ValidateIdentifier(id); err != nil {
		return "", fmt.Errorf("invalid session ID: %w", err)
	}
	return filepath.Join(s.sessionsDir, id+".json"), nil
}

func (s *FileSessionStore) preferencesPath() string {
	return filepath.Join(s.sessionsDir, "preferences.json")
}
