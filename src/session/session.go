// Package session owns the client's token pair. Every consumer goes through
// this one type; unauthenticated-error paths all funnel into Invalidate so
// there is a single choke point for clearing credentials.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/username/cancat/client/src/logger"
)

type tokenFile struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session holds the access/refresh token pair and optionally persists it to
// a file so a restart does not require signing in again. An empty path keeps
// the session memory-only.
type Session struct {
	mu      sync.Mutex
	path    string
	access  string
	refresh string
}

// New returns a Session backed by the given token file. If the file exists
// its tokens are loaded; a missing or unreadable file starts unauthenticated.
func New(path string) *Session {
	s := &Session{path: path}
	if path == "" {
		return s
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) && logger.L != nil {
			logger.L.Warn("Could not read token file, starting unauthenticated", "path", path, "error", err)
		}
		return s
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		if logger.L != nil {
			logger.L.Warn("Malformed token file ignored", "path", path, "error", err)
		}
		return s
	}
	s.access = tf.AccessToken
	s.refresh = tf.RefreshToken
	return s
}

// SetTokens replaces the token pair and persists it. Called on sign-in and
// whenever the server rotates tokens via response headers.
func (s *Session) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
	s.persistLocked()
}

// Tokens returns the current access and refresh tokens.
func (s *Session) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh
}

// Authenticated reports whether an access token is present. It does not
// validate the token; the server is the arbiter of validity.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access != ""
}

// Invalidate clears both tokens and removes the token file. All
// unauthenticated-error paths call this before navigating to sign-in.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	if s.path != "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			if logger.L != nil {
				logger.L.Warn("Could not remove token file on invalidate", "path", s.path, "error", err)
			}
		}
	}
}

// ExpiresSoon reports whether the access token's exp claim falls within
// leeway from now. The token is parsed without signature verification; the
// client has no signing key and only needs the timestamp. Tokens without a
// parseable exp claim are reported as not expiring so the server stays the
// sole authority.
func (s *Session) ExpiresSoon(leeway time.Duration) bool {
	s.mu.Lock()
	access := s.access
	s.mu.Unlock()
	if access == "" {
		return false
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(access, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) <= leeway
}

func (s *Session) persistLocked() {
	if s.path == "" {
		return
	}
	data, err := json.Marshal(tokenFile{AccessToken: s.access, RefreshToken: s.refresh})
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Could not marshal token file", "error", err)
		}
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		if logger.L != nil {
			logger.L.Warn("Could not persist token file", "path", s.path, "error", err)
		}
	}
}
