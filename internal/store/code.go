package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/scoutline/apiserver/types"
)

// CodeRepository handles persistence for one-time codes.
type CodeRepository struct {
	db *sql.DB
}

func NewCodeRepository(db *sql.DB) *CodeRepository {
	return &CodeRepository{db: db}
}

func (r *CodeRepository) Create(ctx context.Context, code types.OneTimeCode) (types.OneTimeCode, error) {
	code.CreatedAt = time.Now()
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	if code.Status == "" {
		code.Status = types.CodePending
	}

	const query = `
		INSERT INTO one_time_codes (id, email, user_id, code, purpose, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		code.ID,
		code.Email,
		code.UserID,
		code.Code,
		code.Purpose,
		code.Status,
		code.ExpiresAt,
		code.CreatedAt,
	); err != nil {
		return types.OneTimeCode{}, err
	}
	return code, nil
}

// Consume flips a matching PENDING, unexpired row to VERIFIED and returns it.
// Match and transition happen in a single conditional UPDATE so that two
// concurrent submissions of the same code cannot both succeed. The predicates
// must live in the UPDATE's own WHERE clause: under READ COMMITTED a blocked
// concurrent UPDATE re-evaluates that clause against the winner's committed
// row version, so the loser fails on status = 'VERIFIED'. Routing the match
// through a subquery would pin the row id before the lock wait and let both
// callers through. Any mismatch (wrong code, wrong purpose, already consumed,
// expired) surfaces as ErrNotFound.
func (r *CodeRepository) Consume(ctx context.Context, email, code, purpose string, now time.Time) (types.OneTimeCode, error) {
	const query = `
		UPDATE one_time_codes
		SET status = $1,
			verified_at = $2
		WHERE lower(email) = lower($3)
			AND code = $4
			AND purpose = $5
			AND status = $6
			AND expires_at > $7
		RETURNING id, email, user_id, code, purpose, status, expires_at, created_at, verified_at`

	var row types.OneTimeCode
	var userID sql.NullString
	var verifiedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query,
		types.CodeVerified,
		now,
		email,
		code,
		purpose,
		types.CodePending,
		now,
	).Scan(
		&row.ID,
		&row.Email,
		&userID,
		&row.Code,
		&row.Purpose,
		&row.Status,
		&row.ExpiresAt,
		&row.CreatedAt,
		&verifiedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.OneTimeCode{}, ErrNotFound
		}
		return types.OneTimeCode{}, err
	}
	if userID.Valid {
		row.UserID = &userID.String
	}
	if verifiedAt.Valid {
		row.VerifiedAt = &verifiedAt.Time
	}
	return row, nil
}

// DeleteExpired removes every row past its expiry, PENDING or VERIFIED alike,
// and reports how many were deleted.
func (r *CodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM one_time_codes WHERE expires_at <= $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
