package services

import "errors"

// Failure kinds surfaced by the auth service. Handlers map these to the
// response envelope; anything else is an internal error.
var (
	// ErrUserNotFound means the target account does not exist for an
	// operation that requires one.
	ErrUserNotFound = errors.New("account not found")

	// ErrEmailTaken means signup was attempted for an email that already
	// owns an account.
	ErrEmailTaken = errors.New("account already exists")

	// ErrCodeInvalid covers every way a code submission can fail: wrong
	// code, wrong purpose, already consumed, or expired. The dimensions
	// are deliberately not distinguished so callers cannot probe which
	// one was wrong.
	ErrCodeInvalid = errors.New("invalid or expired code")

	// ErrPasswordNotSet means the account has no password credential and
	// can only sign in with one-time codes.
	ErrPasswordNotSet = errors.New("password not set for account")

	// ErrInvalidCredentials means the submitted password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDeliveryFailed means the code email could not be handed off.
	ErrDeliveryFailed = errors.New("could not send code email")
)
