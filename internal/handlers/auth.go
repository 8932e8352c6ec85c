package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/scoutline/apiserver/internal/services"
	"github.com/scoutline/apiserver/types"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session"

// AuthHandler provides the identity and session endpoints.
type AuthHandler struct {
	auth          *services.AuthService
	secureCookies bool
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(auth *services.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		auth:          auth,
		secureCookies: secureCookies,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, auth *services.AuthService, secureCookies bool) {
	handler := NewAuthHandler(auth, secureCookies)

	issueLimit := httprate.LimitByIP(5, time.Minute)
	loginLimit := httprate.LimitByIP(10, time.Minute)

	r.With(issueLimit).Post("/login/code", handler.IssueLoginCode)
	r.With(issueLimit).Post("/signup/code", handler.IssueSignupCode)
	r.With(issueLimit).Post("/reset/code", handler.IssueResetCode)
	r.With(loginLimit).Post("/login/verify", handler.VerifyLoginCode)
	r.With(loginLimit).Post("/signup/verify", handler.VerifySignupCode)
	r.With(loginLimit).Post("/login", handler.LoginWithPassword)
	r.With(loginLimit).Post("/signup", handler.SignupWithPassword)
	r.Post("/reset", handler.ResetPassword)
	r.Post("/logout", handler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(handler.SessionAuth, RequireUser)
		r.Get("/me", handler.Me)
		r.Post("/password", handler.SetPassword)
		r.Put("/password", handler.ChangePassword)
	})

	r.With(handler.SessionAuth, RequireRole(types.RoleAdmin)).Post("/sweep", handler.Sweep)
}

// SessionAuth resolves the session cookie and injects the caller's identity
// into the request context. An absent or invalid cookie never fails the
// request here; an invalid cookie is cleared and the caller proceeds as
// anonymous.
func (h *AuthHandler) SessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		identity := h.auth.ResolveSession(cookie.Value)
		if identity == nil {
			h.clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := contextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects anonymous callers.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identityFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers whose session does not carry the given role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := identityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if identity.Role != role {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IssueLoginCode sends a one-time sign-in code to an existing account.
func (h *AuthHandler) IssueLoginCode(w http.ResponseWriter, r *http.Request) {
	h.issueCode(w, r, types.PurposeLogin, "sign-in code sent")
}

// IssueSignupCode sends a one-time signup code to a new address.
func (h *AuthHandler) IssueSignupCode(w http.ResponseWriter, r *http.Request) {
	h.issueCode(w, r, types.PurposeSignup, "signup code sent")
}

// IssueResetCode sends a one-time password-reset code to an existing account.
func (h *AuthHandler) IssueResetCode(w http.ResponseWriter, r *http.Request) {
	h.issueCode(w, r, types.PurposePasswordReset, "password reset code sent")
}

func (h *AuthHandler) issueCode(w http.ResponseWriter, r *http.Request, purpose, message string) {
	var req IssueCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "missing email")
		return
	}

	if err := h.auth.IssueCode(r.Context(), req.Email, purpose); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, message, nil)
}

// VerifyLoginCode consumes a sign-in code and starts a session.
func (h *AuthHandler) VerifyLoginCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "missing email or code")
		return
	}

	user, token, err := h.auth.VerifyLoginCode(r.Context(), req.Email, req.Code)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	writeSuccess(w, http.StatusOK, "signed in", user)
}

// VerifySignupCode consumes a signup code, creates the account, and starts
// a session.
func (h *AuthHandler) VerifySignupCode(w http.ResponseWriter, r *http.Request) {
	var req SignupVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" || req.Code == "" || req.FirstName == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	user, token, err := h.auth.VerifySignupCode(r.Context(), req.Email, req.Code, req.FirstName, req.LastName)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	writeSuccess(w, http.StatusCreated, "account created", user)
}

// LoginWithPassword verifies a password credential and starts a session.
func (h *AuthHandler) LoginWithPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, token, err := h.auth.LoginWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	writeSuccess(w, http.StatusOK, "signed in", user)
}

// SignupWithPassword creates a password-backed account and starts a session.
func (h *AuthHandler) SignupWithPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	user, token, err := h.auth.SignupWithPassword(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	writeSuccess(w, http.StatusCreated, "account created", user)
}

// ResetPassword consumes a reset code and stores the new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	if err := h.auth.ResetPasswordWithCode(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "password updated", nil)
}

// SetPassword stores a password for the authenticated caller.
func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	var req SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing password")
		return
	}

	if err := h.auth.SetPassword(r.Context(), identity.UserID, req.Password); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "password updated", nil)
}

// ChangePassword re-verifies the current password and stores a new one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	if err := h.auth.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "password updated", nil)
}

// Me returns the caller's identity straight from the session claims, with
// no user-store lookup.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	writeSuccess(w, http.StatusOK, "", identity)
}

// Logout clears the session cookie. Sessions are stateless, so there is
// nothing server-side to revoke.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	writeSuccess(w, http.StatusOK, "signed out", nil)
}

// Sweep purges expired one-time codes. Admin only.
func (h *AuthHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.auth.SweepExpiredCodes(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, fmt.Sprintf("deleted %d expired codes", deleted), nil)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, "account already exists")
	case errors.Is(err, services.ErrCodeInvalid):
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
	case errors.Is(err, services.ErrPasswordNotSet):
		writeError(w, http.StatusUnauthorized, "password sign-in is not available for this account")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrDeliveryFailed):
		writeError(w, http.StatusBadGateway, "could not send code email")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type IssueCodeRequest struct {
	Email string `json:"email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type SignupVerifyRequest struct {
	Email     string `json:"email"`
	Code      string `json:"code"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type PasswordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordSignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type SetPasswordRequest struct {
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
