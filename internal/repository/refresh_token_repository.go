package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/greencoach/greencoach-service/internal/models"
)

var (
	// ErrRefreshTokenNotFound is returned for unknown or expired refresh tokens
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenRevoked is returned when a revoked refresh token is presented
	ErrRefreshTokenRevoked = errors.New("refresh token has been revoked")
)

// RefreshTokenRepository defines the interface for refresh token data access
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error

	// GetByHash returns a usable token; revoked and expired tokens yield the sentinels above
	GetByHash(ctx context.Context, hash string) (*models.RefreshToken, error)

	// Rotate revokes oldID, records next as its replacement and stores next atomically
	Rotate(ctx context.Context, oldID uuid.UUID, next *models.RefreshToken) error

	// RevokeAllForUser revokes every active token of the user
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error

	// DeleteExpired removes expired tokens and returns how many were removed
	DeleteExpired(ctx context.Context) (int64, error)
}
