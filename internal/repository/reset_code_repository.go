package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/greencoach/greencoach-service/internal/database"
	"github.com/greencoach/greencoach-service/internal/models"
)

// ErrResetCodeNotFound is returned when no reset code exists for an email
var ErrResetCodeNotFound = errors.New("reset code not found")

// ResetCodeRepository stores password reset codes keyed by email
type ResetCodeRepository interface {
	// Replace deletes existing codes for the email and stores code
	Replace(ctx context.Context, code *models.PasswordResetCode) error

	// Latest returns the most recently created code for the email
	Latest(ctx context.Context, email string) (*models.PasswordResetCode, error)

	DeleteByEmail(ctx context.Context, email string) error
}

// PostgresResetCodeRepository implements ResetCodeRepository using PostgreSQL
type PostgresResetCodeRepository struct {
	db *database.DB
}

// NewPostgresResetCodeRepository creates a new PostgreSQL reset code repository
func NewPostgresResetCodeRepository(db *database.DB) *PostgresResetCodeRepository {
	return &PostgresResetCodeRepository{db: db}
}

// Replace swaps any previous codes for the new one in a single transaction
func (r *PostgresResetCodeRepository) Replace(ctx context.Context, code *models.PasswordResetCode) error {
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset_codes WHERE email = $1`, code.Email); err != nil {
		return fmt.Errorf("failed to clear reset codes: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO password_reset_codes (email, code, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		code.Email, code.Code, code.ExpiresAt, code.CreatedAt,
	).Scan(&code.ID)
	if err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset code: %w", err)
	}
	return nil
}

// Latest returns the newest code for the email
func (r *PostgresResetCodeRepository) Latest(ctx context.Context, email string) (*models.PasswordResetCode, error) {
	var code models.PasswordResetCode
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, code, expires_at, created_at
		FROM password_reset_codes
		WHERE email = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, email,
	).Scan(&code.ID, &code.Email, &code.Code, &code.ExpiresAt, &code.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResetCodeNotFound
		}
		return nil, fmt.Errorf("failed to get reset code: %w", err)
	}
	return &code, nil
}

// DeleteByEmail removes every code for the email
func (r *PostgresResetCodeRepository) DeleteByEmail(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_codes WHERE email = $1`, email); err != nil {
		return fmt.Errorf("failed to delete reset codes: %w", err)
	}
	return nil
}

// MockResetCodeRepository is a mock implementation of ResetCodeRepository for testing
type MockResetCodeRepository struct {
	ReplaceFunc       func(ctx context.Context, code *models.PasswordResetCode) error
	LatestFunc        func(ctx context.Context, email string) (*models.PasswordResetCode, error)
	DeleteByEmailFunc func(ctx context.Context, email string) error
}

// NewMockResetCodeRepository creates a mock that stores nothing
func NewMockResetCodeRepository() *MockResetCodeRepository {
	return &MockResetCodeRepository{
		ReplaceFunc: func(_ context.Context, _ *models.PasswordResetCode) error {
			return nil
		},
		LatestFunc: func(_ context.Context, _ string) (*models.PasswordResetCode, error) {
			return nil, ErrResetCodeNotFound
		},
		DeleteByEmailFunc: func(_ context.Context, _ string) error {
			return nil
		},
	}
}

// Replace implements ResetCodeRepository.Replace
func (m *MockResetCodeRepository) Replace(ctx context.Context, code *models.PasswordResetCode) error {
	return m.ReplaceFunc(ctx, code)
}

// Latest implements ResetCodeRepository.Latest
func (m *MockResetCodeRepository) Latest(ctx context.Context, email string) (*models.PasswordResetCode, error) {
	return m.LatestFunc(ctx, email)
}

// DeleteByEmail implements ResetCodeRepository.DeleteByEmail
func (m *MockResetCodeRepository) DeleteByEmail(ctx context.Context, email string) error {
	return m.DeleteByEmailFunc(ctx, email)
}
