package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshToken_IsUsable(t *testing.T) {
	now := time.Now()
	revokedAt := now.Add(-time.Minute)

	tests := []struct {
		name  string
		token RefreshToken
		want  bool
	}{
		{name: "fresh", token: RefreshToken{ExpiresAt: now.Add(time.Hour)}, want: true},
		{name: "expired", token: RefreshToken{ExpiresAt: now.Add(-time.Second)}, want: false},
		{name: "revoked", token: RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.IsUsable(now))
		})
	}
}

func TestPasswordResetCode_IsExpired(t *testing.T) {
	now := time.Now()
	code := PasswordResetCode{ExpiresAt: now.Add(20 * time.Minute)}

	assert.False(t, code.IsExpired(now))
	assert.False(t, code.IsExpired(now.Add(19*time.Minute)))
	assert.True(t, code.IsExpired(now.Add(20*time.Minute)))
	assert.True(t, code.IsExpired(now.Add(21*time.Minute)))
}
