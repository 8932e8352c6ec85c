package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/scoutline/apiserver/types"
)

func newUserRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewUserRepository(db), mock, db
}

func userRows(hash any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "first_name", "last_name", "role", "password_hash", "is_verified", "created_at", "updated_at",
	}).AddRow("user-1", "alice@example.com", "Alice", "Smith", types.RoleUser, hash, true, now, now)
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,\s*email.*FROM\s+users\s+WHERE\s+lower\(email\)\s*=\s*lower\(\$1\)`).
		WithArgs("Alice@Example.com").
		WillReturnRows(userRows("hashed"))

	got, err := repo.GetByEmail(context.Background(), "Alice@Example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != "user-1" || got.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.PasswordHash == nil || *got.PasswordHash != "hashed" {
		t.Fatalf("expected password hash, got %+v", got.PasswordHash)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,\s*email.*FROM\s+users`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByID_NullPasswordHash(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,\s*email.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("user-1").
		WillReturnRows(userRows(nil))

	got, err := repo.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.PasswordHash != nil {
		t.Fatalf("expected nil hash for code-only account, got %v", *got.PasswordHash)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+users`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), types.User{
		Email:     "alice@example.com",
		FirstName: "Alice",
		Role:      types.RoleUser,
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUpdatePasswordHash_NoRow(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+password_hash`).
		WithArgs("hash", sqlmock.AnyArg(), "missing-id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePasswordHash(context.Background(), "missing-id", "hash")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkVerified(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+is_verified\s*=\s*TRUE`).
		WithArgs(sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkVerified(context.Background(), "user-1"); err != nil {
		t.Fatalf("MarkVerified error: %v", err)
	}
}
