package types

import "time"

// Roles a user account can hold. A user has exactly one flat role label;
// there is no permission hierarchy behind it.
const (
	RoleAdmin  = "admin"
	RoleUser   = "user"
	RolePlayer = "player"
	RoleAgent  = "agent"
	RoleEditor = "editor"
)

// ValidRole reports whether role is one of the known role labels.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleUser, RolePlayer, RoleAgent, RoleEditor:
		return true
	}
	return false
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id" db:"id"`

	// Email is the user's email address. Unique across live accounts.
	Email string `json:"email" db:"email"`

	// FirstName is the user's given name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last_name" db:"last_name"`

	// Role indicates the user's authorization level within the system
	// (e.g., "admin", "player"). Defaults to "user".
	Role string `json:"role" db:"role"`

	// PasswordHash stores the hashed representation of the user's password.
	// Nil for accounts that only ever signed in with one-time codes.
	// This field is never exposed in API responses.
	PasswordHash *string `json:"-" db:"password_hash"`

	// IsVerified is set the first time the user proves control of their
	// email address.
	IsVerified bool `json:"is_verified" db:"is_verified"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
