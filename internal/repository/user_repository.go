package repository

import (
	"context"
	"errors"

	"github.com/prohmpiriya/auth-sentry/internal/domain"
)

// ErrDuplicate is returned when a create violates a uniqueness constraint
// (email, username or verification token).
var ErrDuplicate = errors.New("duplicate record")

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user. Returns ErrDuplicate on uniqueness violation.
	Create(ctx context.Context, user *domain.User) error
	// GetByID retrieves a user by ID (nil, nil when absent)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail retrieves a user by email (nil, nil when absent)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByVerifyToken retrieves a user by email verification token (nil, nil when absent)
	GetByVerifyToken(ctx context.Context, token string) (*domain.User, error)
	// ExistsByEmailOrUsername checks if a user exists with the given email or username
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	// List retrieves all users, newest first
	List(ctx context.Context) ([]*domain.User, error)
	// UpdateRefreshTokenHash sets the single refresh-token slot (nil clears it)
	UpdateRefreshTokenHash(ctx context.Context, id string, hash *string) error
	// SwapRefreshTokenHash replaces the refresh-token slot only if it still
	// holds expected. Returns false when the slot changed underneath, which
	// callers treat as token reuse.
	SwapRefreshTokenHash(ctx context.Context, id string, expected string, next *string) (bool, error)
	// MarkEmailVerified sets the verified flag and clears the single-use token
	MarkEmailVerified(ctx context.Context, id string) error
	// UpdateVerifyToken overwrites the verification token, invalidating any
	// previously issued unconsumed link
	UpdateVerifyToken(ctx context.Context, id, token string) error
}
