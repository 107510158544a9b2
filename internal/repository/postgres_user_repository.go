package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/auth-sentry/internal/domain"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, email, username, password_hash, role, is_email_verified, email_verify_token, refresh_token_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.IsEmailVerified,
		&user.EmailVerifyToken,
		&user.RefreshTokenHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Create creates a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, role, is_email_verified, email_verify_token, refresh_token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.IsEmailVerified,
		user.EmailVerifyToken,
		user.RefreshTokenHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetByVerifyToken retrieves a user by email verification token
func (r *PostgresUserRepository) GetByVerifyToken(ctx context.Context, token string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email_verify_token = $1`
	return scanUser(r.pool.QueryRow(ctx, query, token))
}

// ExistsByEmailOrUsername checks if a user exists with the given email or username
func (r *PostgresUserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 OR username = $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, email, username).Scan(&exists)
	return exists, err
}

// List retrieves all users, newest first
func (r *PostgresUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateRefreshTokenHash sets the single refresh-token slot (nil clears it)
func (r *PostgresUserRepository) UpdateRefreshTokenHash(ctx context.Context, id string, hash *string) error {
	query := `UPDATE users SET refresh_token_hash = $2, updated_at = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, hash, time.Now())
	return err
}

// SwapRefreshTokenHash replaces the refresh-token slot only if it still holds expected
func (r *PostgresUserRepository) SwapRefreshTokenHash(ctx context.Context, id string, expected string, next *string) (bool, error) {
	query := `UPDATE users SET refresh_token_hash = $3, updated_at = $4 WHERE id = $1 AND refresh_token_hash = $2`
	tag, err := r.pool.Exec(ctx, query, id, expected, next, time.Now())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkEmailVerified sets the verified flag and clears the single-use token
func (r *PostgresUserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	query := `UPDATE users SET is_email_verified = TRUE, email_verify_token = NULL, updated_at = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, time.Now())
	return err
}

// UpdateVerifyToken overwrites the verification token
func (r *PostgresUserRepository) UpdateVerifyToken(ctx context.Context, id, token string) error {
	query := `UPDATE users SET email_verify_token = $2, updated_at = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, token, time.Now())
	return err
}
