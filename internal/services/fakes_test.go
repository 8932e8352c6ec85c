package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scoutline/apiserver/internal/session"
	"github.com/scoutline/apiserver/internal/store"
	"github.com/scoutline/apiserver/types"
)

// fakeClock is a mutable test clock shared by the service and the session
// manager.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]types.User)}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, store.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) UpdatePasswordHash(_ context.Context, id string, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = &hash
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.IsVerified = true
	r.users[id] = user
	return nil
}

type fakeCodeRepo struct {
	mu   sync.Mutex
	rows []types.OneTimeCode
}

func (r *fakeCodeRepo) Create(_ context.Context, code types.OneTimeCode) (types.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	if code.Status == "" {
		code.Status = types.CodePending
	}
	r.rows = append(r.rows, code)
	return code, nil
}

// Consume mirrors the store's single conditional UPDATE: match and flip
// happen under one lock, so concurrent submissions cannot both win.
func (r *fakeCodeRepo) Consume(_ context.Context, email, code, purpose string, now time.Time) (types.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		row := &r.rows[i]
		if !strings.EqualFold(row.Email, email) ||
			row.Code != code ||
			row.Purpose != purpose ||
			row.Status != types.CodePending ||
			!row.ExpiresAt.After(now) {
			continue
		}
		row.Status = types.CodeVerified
		verifiedAt := now
		row.VerifiedAt = &verifiedAt
		return *row, nil
	}
	return types.OneTimeCode{}, store.ErrNotFound
}

func (r *fakeCodeRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []types.OneTimeCode
	var deleted int64
	for _, row := range r.rows {
		if row.ExpiresAt.After(now) {
			kept = append(kept, row)
		} else {
			deleted++
		}
	}
	r.rows = kept
	return deleted, nil
}

type sentMail struct {
	email string
	code  string
	kind  string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendCode(_ context.Context, email, code, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{email: email, code: code, kind: kind})
	return nil
}

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("no code email was sent")
	}
	return m.sent[len(m.sent)-1].code
}

type testEnv struct {
	svc   *AuthService
	users *fakeUserRepo
	codes *fakeCodeRepo
	mail  *fakeMailer
	clock *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	sessions, err := session.NewManager(session.Config{
		Secret: []byte("test-secret"),
		TTL:    time.Hour,
		Now:    clock.Now,
	})
	if err != nil {
		t.Fatalf("session.NewManager error: %v", err)
	}

	users := newFakeUserRepo()
	codes := &fakeCodeRepo{}
	mail := &fakeMailer{}

	svc := NewAuthService(users, codes, mail, sessions, 10*time.Minute)
	svc.now = clock.Now

	return &testEnv{svc: svc, users: users, codes: codes, mail: mail, clock: clock}
}

func (e *testEnv) createUser(t *testing.T, email string, passwordHash *string) types.User {
	t.Helper()
	user, err := e.users.Create(context.Background(), types.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		Role:         types.RoleUser,
		PasswordHash: passwordHash,
		IsVerified:   true,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}
