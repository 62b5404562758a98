package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storyshare/internal/domain"
)

// TokenStore keeps the credential on disk. Presence of a valid token
// means authenticated mode; anything else means guest mode.
type TokenStore struct {
	mu    sync.Mutex
	path  string
	creds domain.Credentials
}

// NewTokenStore loads any persisted credential from dir/token.json.
// A missing or unreadable file just starts in guest mode.
func NewTokenStore(dir string) (*TokenStore, error) {
	s := &TokenStore{path: filepath.Join(dir, "token.json")}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if err := json.Unmarshal(data, &s.creds); err != nil {
		// Corrupt credential file degrades to guest mode.
		s.creds = domain.Credentials{}
	}
	return s, nil
}

// Token returns the stored bearer token, or "" when none is stored or
// the stored one is expired or malformed.
func (s *TokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ValidToken(s.creds.Token) {
		return ""
	}
	return s.creds.Token
}

// Credentials returns the stored credentials and whether a valid
// token is present.
func (s *TokenStore) Credentials() (domain.Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, ValidToken(s.creds.Token)
}

// Save persists the credentials from a successful login.
func (s *TokenStore) Save(creds domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	s.creds = creds
	return nil
}

// Clear wipes the stored credential, returning the client to guest
// mode.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = domain.Credentials{}
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// ValidToken reports whether tok looks like a usable JWT: well formed
// and, when it carries an exp claim, not expired. The signature is not
// verified here; the server does that.
func ValidToken(tok string) bool {
	if tok == "" {
		return false
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tok, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp != nil && time.Now().After(exp.Time) {
		return false
	}
	return true
}
