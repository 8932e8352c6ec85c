package session

import (
	"strings"
	"testing"
	"time"

	"github.com/scoutline/apiserver/types"
)

func testUser() types.User {
	return types.User{
		ID:         "user-123",
		Email:      "alice@example.com",
		FirstName:  "Alice",
		LastName:   "Smith",
		Role:       types.RoleUser,
		IsVerified: true,
	}
}

func TestIssueAndResolve(t *testing.T) {
	t.Parallel()

	m, err := NewManager(Config{Secret: []byte("super-secret")})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	tok, err := m.Issue(testUser(), MethodPassword)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	identity := m.Resolve(tok)
	if identity == nil {
		t.Fatalf("Resolve returned nil for a freshly issued token")
	}
	if identity.UserID != "user-123" {
		t.Fatalf("UserID mismatch: got %q", identity.UserID)
	}
	if identity.Email != "alice@example.com" {
		t.Fatalf("Email mismatch: got %q", identity.Email)
	}
	if identity.FirstName != "Alice" || identity.LastName != "Smith" {
		t.Fatalf("name mismatch: %+v", identity)
	}
	if identity.Role != types.RoleUser {
		t.Fatalf("Role mismatch: got %q", identity.Role)
	}
	if !identity.Verified {
		t.Fatalf("expected Verified to carry over")
	}
	if identity.AuthMethod != MethodPassword {
		t.Fatalf("AuthMethod mismatch: got %q", identity.AuthMethod)
	}
}

func TestResolve_TamperedToken(t *testing.T) {
	t.Parallel()

	m, err := NewManager(Config{Secret: []byte("super-secret")})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	tok, err := m.Issue(testUser(), MethodCode)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if identity := m.Resolve(tampered); identity != nil {
		t.Fatalf("expected nil for tampered token, got %+v", identity)
	}
}

func TestResolve_Expired(t *testing.T) {
	t.Parallel()

	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m, err := NewManager(Config{
		Secret: []byte("super-secret"),
		TTL:    time.Hour,
		Now:    func() time.Time { return current },
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	tok, err := m.Issue(testUser(), MethodCode)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if m.Resolve(tok) == nil {
		t.Fatalf("token should be valid before expiry")
	}

	current = current.Add(time.Hour + time.Minute)
	if identity := m.Resolve(tok); identity != nil {
		t.Fatalf("expected nil for expired token, got %+v", identity)
	}
}

func TestResolve_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer, err := NewManager(Config{Secret: []byte("right-secret")})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	resolver, err := NewManager(Config{Secret: []byte("wrong-secret")})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	tok, err := issuer.Issue(testUser(), MethodCode)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if identity := resolver.Resolve(tok); identity != nil {
		t.Fatalf("expected nil for wrong secret, got %+v", identity)
	}
}

func TestResolve_Malformed(t *testing.T) {
	t.Parallel()

	m, err := NewManager(Config{Secret: []byte("k")})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if identity := m.Resolve("not.a.jwt"); identity != nil {
		t.Fatalf("expected nil for malformed token, got %+v", identity)
	}
	if identity := m.Resolve(""); identity != nil {
		t.Fatalf("expected nil for empty token, got %+v", identity)
	}
}

func TestResolve_MissingSubject(t *testing.T) {
	t.Parallel()

	m, err := NewManager(Config{Secret: []byte("super-secret")})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	user := testUser()
	user.ID = ""
	tok, err := m.Issue(user, MethodCode)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if identity := m.Resolve(tok); identity != nil {
		t.Fatalf("expected nil for token without subject, got %+v", identity)
	}
}

func TestNewManager_MissingSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(Config{}); err != ErrMissingSecret {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestNewManager_DefaultTTL(t *testing.T) {
	t.Parallel()

	m, err := NewManager(Config{Secret: []byte("k")})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if m.TTL() != DefaultTTL {
		t.Fatalf("expected default TTL %v, got %v", DefaultTTL, m.TTL())
	}
}
