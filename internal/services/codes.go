package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"

	"github.com/scoutline/apiserver/internal/mailer"
	"github.com/scoutline/apiserver/internal/session"
	"github.com/scoutline/apiserver/internal/store"
	"github.com/scoutline/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// IssueCode generates a six-digit code for the given purpose, records it as
// PENDING, and dispatches it by email. LOGIN and PASSWORD_RESET require an
// existing account; SIGNUP requires the address to be free. A dispatch
// failure is reported as ErrDeliveryFailed; the already-written PENDING row
// is harmless and gets swept once it expires.
func (s *AuthService) IssueCode(ctx context.Context, email, purpose string) error {
	email = normalizeEmail(email)

	// Hygiene, not correctness: the expiry check in Consume is what
	// guarantees stale codes never verify.
	if _, err := s.codes.DeleteExpired(ctx, s.now()); err != nil {
		log.Printf("auth: pre-issuance sweep failed: %v", err)
	}

	var userID *string
	switch purpose {
	case types.PurposeLogin, types.PurposePasswordReset:
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		userID = &user.ID
	case types.PurposeSignup:
		if _, err := s.users.GetByEmail(ctx, email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	default:
		return fmt.Errorf("unsupported code purpose: %s", purpose)
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	if _, err := s.codes.Create(ctx, types.OneTimeCode{
		Email:     email,
		UserID:    userID,
		Code:      code,
		Purpose:   purpose,
		Status:    types.CodePending,
		ExpiresAt: s.now().Add(s.codeTTL),
	}); err != nil {
		return err
	}

	if err := s.mail.SendCode(ctx, email, code, kindFor(purpose)); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// VerifyLoginCode consumes a LOGIN code and issues a session for the linked
// account. The first successful verification also marks the account
// verified.
func (s *AuthService) VerifyLoginCode(ctx context.Context, email, code string) (types.User, string, error) {
	row, err := s.consume(ctx, email, code, types.PurposeLogin)
	if err != nil {
		return types.User{}, "", err
	}
	if row.UserID == nil {
		return types.User{}, "", ErrCodeInvalid
	}

	user, err := s.users.GetByID(ctx, *row.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, "", ErrCodeInvalid
		}
		return types.User{}, "", err
	}

	if !user.IsVerified {
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return types.User{}, "", err
		}
		user.IsVerified = true
	}

	token, err := s.sessions.Issue(user, session.MethodCode)
	if err != nil {
		return types.User{}, "", err
	}
	return user, token, nil
}

// VerifySignupCode consumes a SIGNUP code, creates the account from the
// verified email plus the submitted profile fields, and issues a session.
func (s *AuthService) VerifySignupCode(ctx context.Context, email, code, firstName, lastName string) (types.User, string, error) {
	row, err := s.consume(ctx, email, code, types.PurposeSignup)
	if err != nil {
		return types.User{}, "", err
	}

	user, err := s.users.Create(ctx, types.User{
		Email:      row.Email,
		FirstName:  firstName,
		LastName:   lastName,
		Role:       types.RoleUser,
		IsVerified: true,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, "", ErrEmailTaken
		}
		return types.User{}, "", err
	}

	token, err := s.sessions.Issue(user, session.MethodCode)
	if err != nil {
		return types.User{}, "", err
	}
	return user, token, nil
}

// ResetPasswordWithCode consumes a PASSWORD_RESET code and stores the new
// password for the linked account.
func (s *AuthService) ResetPasswordWithCode(ctx context.Context, email, code, newPassword string) error {
	row, err := s.consume(ctx, email, code, types.PurposePasswordReset)
	if err != nil {
		return err
	}
	if row.UserID == nil {
		return ErrCodeInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, *row.UserID, string(hash)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCodeInvalid
		}
		return err
	}
	return nil
}

// SweepExpiredCodes purges every ledger row past its expiry and reports how
// many were removed. Idempotent and safe to run alongside issuance and
// verification.
func (s *AuthService) SweepExpiredCodes(ctx context.Context) (int64, error) {
	return s.codes.DeleteExpired(ctx, s.now())
}

// consume is the single verification predicate: one atomic match-and-set
// against (email, code, purpose, PENDING, unexpired). Every mismatch
// dimension comes back as the same ErrCodeInvalid.
func (s *AuthService) consume(ctx context.Context, email, code, purpose string) (types.OneTimeCode, error) {
	row, err := s.codes.Consume(ctx, normalizeEmail(email), code, purpose, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.OneTimeCode{}, ErrCodeInvalid
		}
		return types.OneTimeCode{}, err
	}
	return row, nil
}

// generateCode draws a uniformly random value in [0, 1000000) and renders
// it as six digits.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func kindFor(purpose string) string {
	switch purpose {
	case types.PurposeSignup:
		return mailer.KindSignup
	case types.PurposePasswordReset:
		return mailer.KindReset
	default:
		return mailer.KindLogin
	}
}
