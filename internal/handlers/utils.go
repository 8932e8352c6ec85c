package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/scoutline/apiserver/internal/session"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// Response is the uniform envelope every auth operation returns. Failures
// are represented as data; nothing throws across this boundary.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	User    any    `json:"user,omitempty"`
}

func contextWithIdentity(ctx context.Context, identity *session.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

func identityFromContext(ctx context.Context) (*session.Identity, bool) {
	identity, ok := ctx.Value(contextIdentityKey).(*session.Identity)
	return identity, ok && identity != nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeSuccess(w http.ResponseWriter, status int, message string, user any) {
	writeJSON(w, status, Response{Success: true, Message: message, User: user})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Error: message})
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "ok"})
}
