package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/cybaware/internal/models"
)

// Sentinel errors for user store operations
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserStore defines the interface for user storage operations.
// Users are not tenant-owned so these methods take no scope.
type UserStore interface {
	// Create stores a new user and assigns its UserID.
	// Returns ErrUserAlreadyExists if the email is taken.
	Create(ctx context.Context, user *models.User) error

	// Get retrieves a user by ID.
	// Returns ErrUserNotFound if the user doesn't exist.
	Get(ctx context.Context, userID int64) (*models.User, error)

	// GetByEmail retrieves a user by exact email match.
	// Returns ErrUserNotFound if no user has that email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Update stores the email, name and password hash of an existing user.
	// Returns ErrUserNotFound if the user doesn't exist and ErrUserAlreadyExists if the
	// new email belongs to someone else.
	Update(ctx context.Context, user *models.User) error
}
