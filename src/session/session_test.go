package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return s
}

func TestSetTokensPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")

	s := New(path)
	if s.Authenticated() {
		t.Fatal("fresh session reports authenticated")
	}
	s.SetTokens("access-1", "refresh-1")

	reloaded := New(path)
	access, refresh := reloaded.Tokens()
	if access != "access-1" || refresh != "refresh-1" {
		t.Fatalf("reloaded tokens = (%q, %q), want (access-1, refresh-1)", access, refresh)
	}
	if !reloaded.Authenticated() {
		t.Fatal("reloaded session reports unauthenticated")
	}
}

func TestInvalidateClearsTokensAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	s := New(path)
	s.SetTokens("access-1", "refresh-1")

	s.Invalidate()

	if s.Authenticated() {
		t.Fatal("session still authenticated after Invalidate")
	}
	if access, refresh := s.Tokens(); access != "" || refresh != "" {
		t.Fatalf("tokens after Invalidate = (%q, %q), want empty", access, refresh)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("token file still exists after Invalidate: %v", err)
	}
}

func TestInvalidateIsIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "tokens.json"))
	s.SetTokens("access-1", "refresh-1")
	s.Invalidate()
	s.Invalidate() // second call must not panic or resurrect anything
	if s.Authenticated() {
		t.Fatal("session authenticated after double Invalidate")
	}
}

func TestMalformedTokenFileStartsUnauthenticated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("writing malformed file: %v", err)
	}
	if s := New(path); s.Authenticated() {
		t.Fatal("session with malformed token file reports authenticated")
	}
}

func TestExpiresSoon(t *testing.T) {
	t.Run("far_future_token", func(t *testing.T) {
		s := New("")
		s.SetTokens(signedToken(t, time.Now().Add(time.Hour)), "r")
		if s.ExpiresSoon(time.Minute) {
			t.Fatal("token expiring in an hour reported as expiring soon")
		}
	})

	t.Run("imminent_token", func(t *testing.T) {
		s := New("")
		s.SetTokens(signedToken(t, time.Now().Add(30*time.Second)), "r")
		if !s.ExpiresSoon(time.Minute) {
			t.Fatal("token expiring in 30s not reported as expiring soon")
		}
	})

	t.Run("no_token", func(t *testing.T) {
		s := New("")
		if s.ExpiresSoon(time.Minute) {
			t.Fatal("empty session reported as expiring soon")
		}
	})

	t.Run("opaque_token", func(t *testing.T) {
		// Non-JWT tokens are the server's business; never report them as
		// expiring.
		s := New("")
		s.SetTokens("opaque-token", "r")
		if s.ExpiresSoon(time.Minute) {
			t.Fatal("opaque token reported as expiring soon")
		}
	})
}
