package session

import (
	"os"
	"path/filepath"
	"strings"
)

// TokenStore persists the auth token across restarts. One durable key, the
// file; absence means logged out. This is the only client state that
// survives a full reload.
type TokenStore struct {
	path string
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load returns the stored token, or ok=false when logged out.
func (t *TokenStore) Load() (string, bool) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	return token, token != ""
}

func (t *TokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(t.path, []byte(token), 0o600)
}

// Clear removes the token. Clearing an absent token is fine.
func (t *TokenStore) Clear() error {
	err := os.Remove(t.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
