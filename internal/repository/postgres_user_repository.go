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

const userColumns = `
	id, email, password_hash, nickname, birth, gender, avatar_url,
	email_verified, is_active, created_at, updated_at, last_login_at`

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db *database.DB
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(db *database.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Create creates a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		user.ID, user.Email, user.PasswordHash, user.Nickname,
		nullTime(user.Birth), nullString(user.Gender), nullString(user.AvatarURL),
		user.EmailVerified, user.IsActive, user.CreatedAt, user.UpdatedAt, nullTime(user.LastLoginAt),
	)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err, "users_email_key"):
			return ErrUserExists
		case database.IsUniqueViolation(err, "users_nickname_key"):
			return ErrNicknameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by their email address
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// NicknameExists reports whether the nickname is in use
func (r *PostgresUserRepository) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE nickname = $1)`, nickname,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check nickname: %w", err)
	}
	return exists, nil
}

// UpdateProfile updates the editable profile fields
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET nickname = $2, birth = $3, gender = $4, avatar_url = $5, updated_at = $6
		WHERE id = $1`,
		user.ID, user.Nickname, nullTime(user.Birth), nullString(user.Gender),
		nullString(user.AvatarURL), user.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "users_nickname_key") {
			return ErrNicknameTaken
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectOneRow(result, ErrUserNotFound)
}

// UpdatePassword updates a user's password hash
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectOneRow(result, ErrUserNotFound)
}

// UpdateLastLogin updates the user's last login timestamp
func (r *PostgresUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = NOW() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return expectOneRow(result, ErrUserNotFound)
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var birth, lastLogin sql.NullTime
	var gender, avatar sql.NullString

	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Nickname,
		&birth, &gender, &avatar,
		&user.EmailVerified, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.Birth = timePtr(birth)
	user.Gender = stringPtr(gender)
	user.AvatarURL = stringPtr(avatar)
	user.LastLoginAt = timePtr(lastLogin)
	return user, nil
}
