package types

import "time"

// Purposes a one-time code can be issued for. A code only verifies against
// the purpose it was issued with.
const (
	PurposeLogin         = "LOGIN"
	PurposeSignup        = "SIGNUP"
	PurposePasswordReset = "PASSWORD_RESET"
)

// ValidPurpose reports whether purpose is one of the known code purposes.
func ValidPurpose(purpose string) bool {
	switch purpose {
	case PurposeLogin, PurposeSignup, PurposePasswordReset:
		return true
	}
	return false
}

// One-time code lifecycle states. The only transition is PENDING -> VERIFIED;
// expired rows are removed by the sweeper regardless of state.
const (
	CodePending  = "PENDING"
	CodeVerified = "VERIFIED"
)

// OneTimeCode is a short-lived six-digit credential mailed to an address to
// prove control of it.
type OneTimeCode struct {
	// ID is the unique identifier of the ledger row.
	ID string `json:"id" db:"id"`

	// Email is the address the code was issued to.
	Email string `json:"email" db:"email"`

	// UserID links the code to an existing account. Nil for SIGNUP codes,
	// where no account exists yet.
	UserID *string `json:"user_id,omitempty" db:"user_id"`

	// Code is the six-digit numeric value in textual form ("000000"-"999999").
	Code string `json:"-" db:"code"`

	// Purpose is one of LOGIN, SIGNUP, PASSWORD_RESET.
	Purpose string `json:"purpose" db:"purpose"`

	// Status is PENDING until the code is consumed, then VERIFIED.
	Status string `json:"status" db:"status"`

	// ExpiresAt is the moment the code stops verifying.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`

	// CreatedAt is the timestamp the code was issued.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// VerifiedAt is set when the code is consumed.
	VerifiedAt *time.Time `json:"verified_at,omitempty" db:"verified_at"`
}
