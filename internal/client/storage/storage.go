// Package storage keeps the client's local state between runs: the server
// address and the login session.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFile is the session file name inside the user's config directory.
const DefaultFile = "jobtracker/session.json"

// Session is the locally persisted login.
type Session struct {
	BaseURL  string `json:"base_url"`
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`

	mu   sync.Mutex
	path string
}

// DefaultPath returns DefaultFile under os.UserConfigDir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultFile), nil
}

// Open reads the session stored at path. A missing file yields an empty
// session bound to path.
func Open(path string) (*Session, error) {
	s := &Session{path: path}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoggedIn reports whether a token and user id are present.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Token != "" && s.UserID > 0
}

// Set records a successful login.
func (s *Session) Set(token string, userID int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Token = token
	s.UserID = userID
	s.Username = username
}

// Clear forgets the login but keeps the server address.
func (s *Session) Clear() {
	s.Set("", 0, "")
}

// Save writes the session back to its file with owner-only permissions.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
