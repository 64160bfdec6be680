package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAccessToken(t *testing.T) {
	service := NewJWTService("test-secret", time.Hour, 24*time.Hour)
	userID := uuid.New()

	token, expiresAt, err := service.IssueAccessToken(userID, "eco@example.com", "greenie")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Second)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, id)
	assert.Equal(t, "eco@example.com", claims.Email)
	assert.Equal(t, "greenie", claims.Nickname)
	assert.Equal(t, "greencoach-service", claims.Issuer)
}

func TestIssueAccessToken_Unique(t *testing.T) {
	service := NewJWTService("test-secret", time.Hour, 24*time.Hour)
	userID := uuid.New()

	a, _, err := service.IssueAccessToken(userID, "eco@example.com", "greenie")
	require.NoError(t, err)
	b, _, err := service.IssueAccessToken(userID, "eco@example.com", "greenie")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestValidateToken_Errors(t *testing.T) {
	service := NewJWTService("test-secret", time.Hour, 24*time.Hour)
	userID := uuid.New()

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    "greencoach-service",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty", token: "", wantErr: ErrInvalidToken},
		{name: "garbage", token: "not.a.jwt", wantErr: ErrInvalidToken},
		{
			name:    "wrong secret",
			token:   sign(&Claims{RegisteredClaims: valid}, jwt.SigningMethodHS256, []byte("other-secret")),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "none algorithm",
			token:   sign(&Claims{RegisteredClaims: valid}, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType),
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired",
			token: sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   userID.String(),
				Issuer:    "greencoach-service",
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
			}}, jwt.SigningMethodHS256, []byte("test-secret")),
			wantErr: ErrExpiredToken,
		},
		{
			name: "foreign issuer",
			token: sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   userID.String(),
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}}, jwt.SigningMethodHS256, []byte("test-secret")),
			wantErr: ErrInvalidToken,
		},
		{
			name: "subject is not a uuid",
			token: sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				Issuer:    "greencoach-service",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			}}, jwt.SigningMethodHS256, []byte("test-secret")),
			wantErr: ErrInvalidClaims,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateToken_UsesClock(t *testing.T) {
	service := NewJWTService("test-secret", time.Minute, time.Hour)
	token, _, err := service.IssueAccessToken(uuid.New(), "eco@example.com", "")
	require.NoError(t, err)

	service.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err = service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTTLs(t *testing.T) {
	service := NewJWTService("s", 24*time.Hour, 720*time.Hour)
	assert.Equal(t, 24*time.Hour, service.AccessTokenTTL())
	assert.Equal(t, 720*time.Hour, service.RefreshTokenTTL())
}

func BenchmarkValidateToken(b *testing.B) {
	service := NewJWTService("test-secret", time.Hour, 24*time.Hour)
	token, _, _ := service.IssueAccessToken(uuid.New(), "eco@example.com", "greenie")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = service.ValidateToken(token)
	}
}
