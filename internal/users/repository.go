package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-id/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-id/gatehouse/internal/shared"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `
	u.id, u.role_id, r.name, u.first_name, u.last_name, u.email,
	u.is_verified, u.is_active, u.last_active, u.created_at, u.updated_at`

const userJoin = ` FROM users u JOIN roles r ON r.id = u.role_id`

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID, &user.RoleID, &user.RoleName, &user.FirstName, &user.LastName,
		&user.Email, &user.IsVerified, &user.IsActive, &user.LastActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return user, err
}

// Create inserts a new account. A duplicate email maps to
// httpx.ErrDuplicate; the users.email UNIQUE constraint is also the
// race guard the bootstrap sequencer relies on.
func (r *Repository) Create(ctx context.Context, params CreateParams) (User, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (role_id, first_name, last_name, email, password_hash, is_verified, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
		RETURNING id`,
		params.RoleID, params.FirstName, params.LastName, params.Email, params.PasswordHash, params.IsVerified,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, httpx.ErrDuplicate
		}
		return User{}, err
	}
	return r.Get(ctx, id)
}

// List returns accounts ordered by id with offset pagination.
func (r *Repository) List(ctx context.Context, skip, limit int) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+userJoin+` ORDER BY u.id OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

// Get fetches one account by id.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+userJoin+` WHERE u.id = $1`, id))
}

// GetByEmail fetches one account by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+userJoin+` WHERE u.email = $1`, email))
}

// GetPasswordHash returns the stored hash for password verification.
func (r *Repository) GetPasswordHash(ctx context.Context, id int64) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, id).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrNotFound
	}
	return hash, err
}

// Update applies profile changes, leaving nil fields untouched.
func (r *Repository) Update(ctx context.Context, id int64, params UpdateParams) (User, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET
			first_name = COALESCE($2, first_name),
			last_name  = COALESCE($3, last_name),
			updated_at = now()
		WHERE id = $1`,
		id, params.FirstName, params.LastName,
	)
	if err != nil {
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

// UpdatePassword stores a new password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive toggles an account's active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountByRole reports how many accounts hold the role.
func (r *Repository) CountByRole(ctx context.Context, roleID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE role_id = $1`, roleID).Scan(&count)
	return count, err
}

// Delete removes an account.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
