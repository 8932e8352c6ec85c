// Package session mints and resolves the signed, self-contained tokens that
// carry a caller's identity between requests. Validity is determined solely
// by signature and expiry: there is no server-side session state and no
// revocation list, so a token stays usable until it expires and role or
// verification changes only take effect once a fresh token is issued. That
// trade-off is deliberate; it keeps request authorization free of database
// round trips.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scoutline/apiserver/types"
)

// Auth-method tags carried in the token, recording how the session was
// established.
const (
	MethodCode     = "otc"
	MethodPassword = "password"
)

// DefaultTTL is the validity window applied when Config.TTL is zero.
const DefaultTTL = 30 * 24 * time.Hour

// ErrMissingSecret is returned by NewManager when no signing secret is
// configured. Operating without one would be a security defect, so callers
// treat this as fatal at startup.
var ErrMissingSecret = errors.New("session signing secret is required")

// Config carries the signing material and clock for a Manager. Tests supply
// a deterministic Now.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// Claims is the full claim set embedded in a session token.
type Claims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       string `json:"role"`
	Verified   bool   `json:"verified"`
	AuthMethod string `json:"auth_method"`
}

// Identity is the caller extracted from a valid token.
type Identity struct {
	UserID     string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       string `json:"role"`
	Verified   bool   `json:"is_verified"`
	AuthMethod string `json:"auth_method"`
}

// Manager issues and resolves session tokens with a process-wide secret.
// The secret must be identical across every instance that issues or
// resolves sessions.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{secret: cfg.Secret, ttl: ttl, now: now}, nil
}

// Issue mints a token for user, tagged with how the user authenticated.
func (m *Manager) Issue(user types.User, method string) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Role:       user.Role,
		Verified:   user.IsVerified,
		AuthMethod: method,
	})
	return token.SignedString(m.secret)
}

// Resolve validates signature and expiry and extracts the identity. It does
// not consult the user store. Malformed tokens, bad signatures, expired
// tokens, and tokens missing required claims all yield nil.
func (m *Manager) Resolve(tokenString string) *Identity {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.Email) == "" {
		return nil
	}
	return &Identity{
		UserID:     claims.Subject,
		Email:      claims.Email,
		FirstName:  claims.FirstName,
		LastName:   claims.LastName,
		Role:       claims.Role,
		Verified:   claims.Verified,
		AuthMethod: claims.AuthMethod,
	}
}

// TTL reports the validity window applied to issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}
