package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/scoutline/apiserver/internal/mailer"
	"github.com/scoutline/apiserver/internal/session"
	"github.com/scoutline/apiserver/internal/store"
	"github.com/scoutline/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is deliberately above the library default; password hashes
// must survive offline brute force.
const bcryptCost = 12

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
	MarkVerified(ctx context.Context, id string) error
}

// CodeRepository defines persistence operations for one-time codes.
type CodeRepository interface {
	Create(ctx context.Context, code types.OneTimeCode) (types.OneTimeCode, error)
	Consume(ctx context.Context, email, code, purpose string, now time.Time) (types.OneTimeCode, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuthService encapsulates the identity and session use-cases: one-time-code
// issuance and verification, password credentials, and session minting.
type AuthService struct {
	users    UserRepository
	codes    CodeRepository
	mail     mailer.Mailer
	sessions *session.Manager
	codeTTL  time.Duration
	now      func() time.Time
}

func NewAuthService(
	users UserRepository,
	codes CodeRepository,
	mail mailer.Mailer,
	sessions *session.Manager,
	codeTTL time.Duration,
) *AuthService {
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	return &AuthService{
		users:    users,
		codes:    codes,
		mail:     mail,
		sessions: sessions,
		codeTTL:  codeTTL,
		now:      time.Now,
	}
}

// SessionTTL reports the validity window of issued session tokens, for the
// transport layer's cookie max-age.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessions.TTL()
}

// ResolveSession validates a session token and extracts the caller's
// identity without touching the user store. Invalid tokens yield nil.
func (s *AuthService) ResolveSession(token string) *session.Identity {
	return s.sessions.Resolve(token)
}

// LoginWithPassword verifies a password credential and issues a session.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (types.User, string, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", ErrUserNotFound
		}
		return types.User{}, "", err
	}
	if user.PasswordHash == nil {
		return types.User{}, "", ErrPasswordNotSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, "", ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(user, session.MethodPassword)
	if err != nil {
		return types.User{}, "", err
	}
	return user, token, nil
}

// SignupWithPassword creates a verified account with a password credential
// and issues a session.
func (s *AuthService) SignupWithPassword(ctx context.Context, email, password, firstName, lastName string) (types.User, string, error) {
	email = normalizeEmail(email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return types.User{}, "", ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return types.User{}, "", err
	}
	hashString := string(hash)

	user, err := s.users.Create(ctx, types.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         types.RoleUser,
		PasswordHash: &hashString,
		IsVerified:   true,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, "", ErrEmailTaken
		}
		return types.User{}, "", err
	}

	token, err := s.sessions.Issue(user, session.MethodPassword)
	if err != nil {
		return types.User{}, "", err
	}
	return user, token, nil
}

// SetPassword hashes and stores a password for the given user. Intended for
// authenticated OTC-only accounts adding a password credential.
func (s *AuthService) SetPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// ChangePassword re-verifies the current password before storing a new one.
// Without that proof the stored hash is never touched, even for an already
// authenticated caller.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.PasswordHash == nil {
		return ErrPasswordNotSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, userID, string(hash))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
