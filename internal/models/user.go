package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format for calendar dates such as a birth date
const DateLayout = "2006-01-02"

// User represents a user account in the system
type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Nickname      string     `json:"nickname" db:"nickname"`
	Birth         *time.Time `json:"-" db:"birth"`
	Gender        *string    `json:"gender,omitempty" db:"gender"`
	AvatarURL     *string    `json:"avatarUrl,omitempty" db:"avatar_url"`
	EmailVerified bool       `json:"verified" db:"email_verified"`
	IsActive      bool       `json:"isActive" db:"is_active"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Nickname    string     `json:"nickname"`
	Email       string     `json:"email"`
	Verified    bool       `json:"verified"`
	AvatarURL   *string    `json:"avatarUrl,omitempty"`
	Birth       *string    `json:"birth,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// ToResponse converts a User to a UserResponse (safe for API)
func (u *User) ToResponse() *UserResponse {
	resp := &UserResponse{
		ID:          u.ID,
		Nickname:    u.Nickname,
		Email:       u.Email,
		Verified:    u.EmailVerified,
		AvatarURL:   u.AvatarURL,
		Gender:      u.Gender,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
	if u.Birth != nil {
		b := u.Birth.Format(DateLayout)
		resp.Birth = &b
	}
	return resp
}

// NormalizeEmail trims and lowercases an address before lookup or storage
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseDate parses a YYYY-MM-DD date. Blank input yields nil without error.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
