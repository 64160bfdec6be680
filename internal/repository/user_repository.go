// Package repository holds the persistence interfaces, their PostgreSQL
// implementations and function-field mocks for handler tests.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/greencoach/greencoach-service/internal/models"
)

var (
	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when a user with the same email already exists
	ErrUserExists = errors.New("user with this email already exists")
	// ErrNicknameTaken is returned when another account already uses the nickname
	ErrNicknameTaken = errors.New("nickname is already taken")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create stores a new user, assigning ID and timestamps when unset
	Create(ctx context.Context, user *models.User) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail expects an already normalised address
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// NicknameExists reports whether any account uses nickname
	NicknameExists(ctx context.Context, nickname string) (bool, error)

	// UpdateProfile persists nickname, birth, gender and avatar URL
	UpdateProfile(ctx context.Context, user *models.User) error

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}
