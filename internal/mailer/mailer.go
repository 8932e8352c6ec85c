package mailer

import (
	"context"
	"fmt"
	"time"
)

// Kinds of code emails. They select the subject line and wording only; the
// auth core decides which purpose a code verifies against.
const (
	KindLogin  = "login"
	KindSignup = "signup"
	KindReset  = "reset"
)

// Mailer delivers a one-time code to an address. Implementations report a
// synchronous dispatch failure through the returned error; anything that
// fails after handoff (bounces, delayed delivery) is out of their hands.
type Mailer interface {
	SendCode(ctx context.Context, email, code, kind string) error
}

func subjectFor(kind string) string {
	switch kind {
	case KindSignup:
		return "Confirm your scoutline account"
	case KindReset:
		return "Reset your scoutline password"
	default:
		return "Your scoutline sign-in code"
	}
}

func bodyFor(kind, code string, ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	switch kind {
	case KindSignup:
		return fmt.Sprintf("Your scoutline signup code is %s. It is valid for %d minutes.", code, minutes)
	case KindReset:
		return fmt.Sprintf("Your scoutline password reset code is %s. It is valid for %d minutes.", code, minutes)
	default:
		return fmt.Sprintf("Your scoutline sign-in code is %s. It is valid for %d minutes.", code, minutes)
	}
}
