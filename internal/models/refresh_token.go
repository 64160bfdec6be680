package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is a persisted refresh token. Only the SHA-256 hash of the
// opaque token handed to the client is stored.
type RefreshToken struct {
	ID         uuid.UUID  `db:"id"`
	UserID     uuid.UUID  `db:"user_id"`
	TokenHash  string     `db:"token_hash"`
	ExpiresAt  time.Time  `db:"expires_at"`
	CreatedAt  time.Time  `db:"created_at"`
	RevokedAt  *time.Time `db:"revoked_at"`
	ReplacedBy *uuid.UUID `db:"replaced_by"`
	UserAgent  string     `db:"user_agent"`
	IPAddress  string     `db:"ip_address"`
}

// IsUsable reports whether the token is neither revoked nor expired at now
func (rt *RefreshToken) IsUsable(now time.Time) bool {
	return rt.RevokedAt == nil && now.Before(rt.ExpiresAt)
}

// PasswordResetCode is a 4 digit code mailed to a user who forgot their password
type PasswordResetCode struct {
	ID        int64     `db:"id"`
	Email     string    `db:"email"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// IsExpired reports whether the code has reached its expiry at now
func (c *PasswordResetCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
