package otp

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-id/gatehouse/internal/shared"
)

// Repository defines persistence operations for one-time codes.
type Repository interface {
	Create(ctx context.Context, record OTP) (OTP, error)
	InvalidatePrevious(ctx context.Context, email string, otpType Type) error
	GetActiveByCode(ctx context.Context, code string) (OTP, error)
	MarkUsed(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create stores a new code.
func (r *PGRepository) Create(ctx context.Context, record OTP) (OTP, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO otps (user_id, email, code, type, is_used, expires_at)
		VALUES ($1, $2, $3, $4, false, $5)
		RETURNING id, created_at`,
		record.UserID, record.Email, record.Code, string(record.Type), record.ExpiresAt.UTC(),
	).Scan(&record.ID, &record.CreatedAt)
	return record, err
}

// InvalidatePrevious marks all outstanding codes for the address and
// flow as used, so only the newest code can succeed.
func (r *PGRepository) InvalidatePrevious(ctx context.Context, email string, otpType Type) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE otps SET is_used = true
		WHERE email = $1 AND type = $2 AND is_used = false`,
		email, string(otpType),
	)
	return err
}

// GetActiveByCode fetches the newest unused record for the code.
func (r *PGRepository) GetActiveByCode(ctx context.Context, code string) (OTP, error) {
	var record OTP
	var otpType string
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, email, code, type, is_used, expires_at, created_at
		FROM otps
		WHERE code = $1 AND is_used = false
		ORDER BY created_at DESC
		LIMIT 1`,
		code,
	).Scan(&record.ID, &record.UserID, &record.Email, &record.Code, &otpType, &record.Used, &record.ExpiresAt, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return OTP{}, shared.ErrOTPInvalid
	}
	if err != nil {
		return OTP{}, err
	}
	record.Type = Type(otpType)
	return record, nil
}

// MarkUsed consumes a code.
func (r *PGRepository) MarkUsed(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE otps SET is_used = true WHERE id = $1`, id)
	return err
}

// DeleteExpired removes codes past their expiry.
func (r *PGRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
