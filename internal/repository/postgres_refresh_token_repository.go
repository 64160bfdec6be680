package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greencoach/greencoach-service/internal/database"
	"github.com/greencoach/greencoach-service/internal/models"
)

const insertRefreshToken = `
	INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, user_agent, ip_address)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// PostgresRefreshTokenRepository implements RefreshTokenRepository using PostgreSQL
type PostgresRefreshTokenRepository struct {
	db *database.DB
}

// NewPostgresRefreshTokenRepository creates a new PostgreSQL refresh token repository
func NewPostgresRefreshTokenRepository(db *database.DB) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{db: db}
}

func prepareToken(token *models.RefreshToken) {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
}

// Create stores a new refresh token
func (r *PostgresRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	prepareToken(token)
	_, err := r.db.ExecContext(ctx, insertRefreshToken,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt,
		token.UserAgent, token.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

// GetByHash retrieves a refresh token by its hash
func (r *PostgresRefreshTokenRepository) GetByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	var revokedAt sql.NullTime
	var replacedBy uuid.NullUUID
	var userAgent, ip sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked_at, replaced_by, user_agent, ip_address
		FROM refresh_tokens
		WHERE token_hash = $1`, hash,
	).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt,
		&revokedAt, &replacedBy, &userAgent, &ip,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	token.RevokedAt = timePtr(revokedAt)
	token.ReplacedBy = uuidPtr(replacedBy)
	token.UserAgent = userAgent.String
	token.IPAddress = ip.String

	if token.RevokedAt != nil {
		return nil, ErrRefreshTokenRevoked
	}
	if !token.IsUsable(time.Now()) {
		return nil, ErrRefreshTokenNotFound
	}
	return &token, nil
}

// Rotate swaps oldID for next inside one transaction
func (r *PostgresRefreshTokenRepository) Rotate(ctx context.Context, oldID uuid.UUID, next *models.RefreshToken) error {
	prepareToken(next)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW(), replaced_by = $2
		WHERE id = $1 AND revoked_at IS NULL`, oldID, next.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if err := expectOneRow(result, ErrRefreshTokenRevoked); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, insertRefreshToken,
		next.ID, next.UserID, next.TokenHash, next.ExpiresAt, next.CreatedAt,
		next.UserAgent, next.IPAddress,
	); err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes all active refresh tokens for a specific user
func (r *PostgresRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired tokens and returns the count
func (r *PostgresRefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected()
}
