package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greencoach/greencoach-service/internal/auth"
	"github.com/greencoach/greencoach-service/internal/email"
	"github.com/greencoach/greencoach-service/internal/middleware"
	"github.com/greencoach/greencoach-service/internal/models"
	"github.com/greencoach/greencoach-service/internal/repository"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type authFixture struct {
	handler *AuthHandler
	users   *repository.MockUserRepository
	tokens  *repository.MockRefreshTokenRepository
	codes   *repository.MockResetCodeRepository
	mailer  *email.MockService
	jwt     *auth.JWTService
}

func setupAuthTest() *authFixture {
	f := &authFixture{
		users:  repository.NewMockUserRepository(),
		tokens: repository.NewMockRefreshTokenRepository(),
		codes:  repository.NewMockResetCodeRepository(),
		mailer: email.NewMockService(),
		jwt:    auth.NewJWTService("test-secret", time.Hour, 24*time.Hour),
	}
	f.handler = NewAuthHandler(f.users, f.tokens, f.codes, f.jwt).
		WithEmailService(f.mailer).
		WithResetCodeTTL(20 * time.Minute)
	f.handler.now = func() time.Time { return fixedNow }
	return f
}

// newJSONContext builds a test context carrying body as JSON
func newJSONContext(method, path string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func existingUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return &models.User{
		ID:            uuid.New(),
		Email:         "green@example.com",
		PasswordHash:  hash,
		Nickname:      "green",
		EmailVerified: true,
		IsActive:      true,
		CreatedAt:     fixedNow.Add(-24 * time.Hour),
	}
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	f := setupAuthTest()

	var created *models.User
	var stored *models.RefreshToken
	f.users.CreateFunc = func(_ context.Context, user *models.User) error {
		created = user
		return nil
	}
	f.tokens.CreateFunc = func(_ context.Context, token *models.RefreshToken) error {
		stored = token
		return nil
	}

	c, w := newJSONContext(http.MethodPost, "/auth/signup", gin.H{
		"nickname": "green",
		"email":    "  Green@Example.com ",
		"password": "password123",
		"birth":    "1999-04-05",
		"gender":   "F",
	})
	f.handler.Signup(c)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, resp.AccessToken, resp.Token)
	assert.Len(t, resp.RefreshToken, 43)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
	assert.Equal(t, "green@example.com", resp.User.Email)
	assert.Equal(t, "green", resp.User.Nickname)
	assert.True(t, resp.User.Verified)
	require.NotNil(t, resp.User.Birth)
	assert.Equal(t, "1999-04-05", *resp.User.Birth)

	require.NotNil(t, created)
	assert.True(t, auth.VerifyPassword("password123", created.PasswordHash))
	assert.True(t, created.IsActive)
	require.NotNil(t, created.Gender)
	assert.Equal(t, "F", *created.Gender)

	require.NotNil(t, stored)
	assert.Equal(t, created.ID, stored.UserID)
	assert.Equal(t, auth.HashToken(resp.RefreshToken), stored.TokenHash)
	assert.Equal(t, fixedNow.Add(24*time.Hour), stored.ExpiresAt)
}

func TestAuthHandler_Signup_Conflicts(t *testing.T) {
	tests := []struct {
		name      string
		configure func(f *authFixture)
		wantCode  string
	}{
		{
			name: "email already registered",
			configure: func(f *authFixture) {
				f.users.GetByEmailFunc = func(_ context.Context, _ string) (*models.User, error) {
					return &models.User{ID: uuid.New()}, nil
				}
			},
			wantCode: "user_exists",
		},
		{
			name: "nickname taken",
			configure: func(f *authFixture) {
				f.users.NicknameExistsFunc = func(_ context.Context, _ string) (bool, error) {
					return true, nil
				}
			},
			wantCode: "nickname_taken",
		},
		{
			name: "nickname claimed concurrently",
			configure: func(f *authFixture) {
				f.users.CreateFunc = func(_ context.Context, _ *models.User) error {
					return repository.ErrNicknameTaken
				}
			},
			wantCode: "nickname_taken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAuthTest()
			tt.configure(f)

			c, w := newJSONContext(http.MethodPost, "/auth/signup", gin.H{
				"nickname": "green", "email": "green@example.com", "password": "password123",
			})
			f.handler.Signup(c)

			assert.Equal(t, http.StatusConflict, w.Code)
			assert.Contains(t, w.Body.String(), `"error":"`+tt.wantCode+`"`)
		})
	}
}

func TestAuthHandler_Signup_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"malformed json", `{"nickname":`},
		{"missing nickname", gin.H{"email": "a@b.com", "password": "password123"}},
		{"invalid email", gin.H{"nickname": "n", "email": "not-an-email", "password": "password123"}},
		{"short password", gin.H{"nickname": "n", "email": "a@b.com", "password": "short"}},
		{"bad birth", gin.H{"nickname": "n", "email": "a@b.com", "password": "password123", "birth": "05/04/1999"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAuthTest()
			f.users.CreateFunc = func(_ context.Context, _ *models.User) error {
				t.Fatal("Create must not be called")
				return nil
			}

			c, w := newJSONContext(http.MethodPost, "/auth/signup", tt.body)
			f.handler.Signup(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid_request")
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	user := existingUser(t, "password123")

	tests := []struct {
		name       string
		password   string
		configure  func(f *authFixture)
		wantStatus int
		wantCode   string
	}{
		{
			name:       "success",
			password:   "password123",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			password:   "wrong-password",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_credentials",
		},
		{
			name:     "unknown user",
			password: "password123",
			configure: func(f *authFixture) {
				f.users.GetByEmailFunc = func(_ context.Context, _ string) (*models.User, error) {
					return nil, repository.ErrUserNotFound
				}
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_credentials",
		},
		{
			name:     "disabled account",
			password: "password123",
			configure: func(f *authFixture) {
				disabled := *user
				disabled.IsActive = false
				f.users.GetByEmailFunc = func(_ context.Context, _ string) (*models.User, error) {
					return &disabled, nil
				}
			},
			wantStatus: http.StatusForbidden,
			wantCode:   "account_disabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAuthTest()
			var lookedUp string
			f.users.GetByEmailFunc = func(_ context.Context, email string) (*models.User, error) {
				lookedUp = email
				u := *user
				return &u, nil
			}
			lastLogin := false
			f.users.UpdateLastLoginFunc = func(_ context.Context, id uuid.UUID) error {
				lastLogin = id == user.ID
				return nil
			}
			if tt.configure != nil {
				tt.configure(f)
			}

			c, w := newJSONContext(http.MethodPost, "/auth/login", gin.H{
				"email": "GREEN@example.com", "password": tt.password,
			})
			f.handler.Login(c)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Contains(t, w.Body.String(), tt.wantCode)
				assert.False(t, lastLogin)
				return
			}

			assert.Equal(t, "green@example.com", lookedUp)
			assert.True(t, lastLogin)

			var resp AuthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			claims, err := f.jwt.ValidateToken(resp.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, user.ID.String(), claims.Subject)
			assert.Equal(t, "green", claims.Nickname)
			require.NotNil(t, resp.User.LastLoginAt)
		})
	}
}

func TestAuthHandler_CheckNickname(t *testing.T) {
	for _, taken := range []bool{true, false} {
		f := setupAuthTest()
		f.users.NicknameExistsFunc = func(_ context.Context, nickname string) (bool, error) {
			assert.Equal(t, "green", nickname)
			return taken, nil
		}

		c, w := newJSONContext(http.MethodPost, "/auth/nickname/check", gin.H{"nickname": "green"})
		f.handler.CheckNickname(c)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]bool
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, !taken, resp["available"])
	}
}

func TestAuthHandler_RefreshToken_Rotates(t *testing.T) {
	f := setupAuthTest()
	user := existingUser(t, "password123")
	old := &models.RefreshToken{ID: uuid.New(), UserID: user.ID, ExpiresAt: fixedNow.Add(time.Hour)}

	f.tokens.GetByHashFunc = func(_ context.Context, hash string) (*models.RefreshToken, error) {
		assert.Equal(t, auth.HashToken("opaque-old-token"), hash)
		return old, nil
	}
	f.users.GetByIDFunc = func(_ context.Context, _ uuid.UUID) (*models.User, error) {
		return user, nil
	}
	var rotatedFrom uuid.UUID
	var next *models.RefreshToken
	f.tokens.RotateFunc = func(_ context.Context, oldID uuid.UUID, token *models.RefreshToken) error {
		rotatedFrom, next = oldID, token
		return nil
	}

	c, w := newJSONContext(http.MethodPost, "/auth/refresh", gin.H{"refreshToken": "opaque-old-token"})
	f.handler.RefreshToken(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, old.ID, rotatedFrom)
	require.NotNil(t, next)
	assert.Equal(t, auth.HashToken(resp.RefreshToken), next.TokenHash)
	assert.NotEqual(t, "opaque-old-token", resp.RefreshToken)
}

func TestAuthHandler_RefreshToken_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		configure func(f *authFixture)
	}{
		{
			name:      "unknown token",
			configure: func(_ *authFixture) {},
		},
		{
			name: "revoked token",
			configure: func(f *authFixture) {
				f.tokens.GetByHashFunc = func(_ context.Context, _ string) (*models.RefreshToken, error) {
					return nil, repository.ErrRefreshTokenRevoked
				}
			},
		},
		{
			name: "lost rotation race",
			configure: func(f *authFixture) {
				f.tokens.GetByHashFunc = func(_ context.Context, _ string) (*models.RefreshToken, error) {
					return &models.RefreshToken{ID: uuid.New(), UserID: uuid.New()}, nil
				}
				f.users.GetByIDFunc = func(_ context.Context, id uuid.UUID) (*models.User, error) {
					return &models.User{ID: id, IsActive: true}, nil
				}
				f.tokens.RotateFunc = func(_ context.Context, _ uuid.UUID, _ *models.RefreshToken) error {
					return repository.ErrRefreshTokenRevoked
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAuthTest()
			tt.configure(f)

			c, w := newJSONContext(http.MethodPost, "/auth/refresh", gin.H{"refreshToken": "whatever"})
			f.handler.RefreshToken(c)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "invalid_token")
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	f := setupAuthTest()
	userID := uuid.New()
	var revoked uuid.UUID
	f.tokens.RevokeAllForUserFunc = func(_ context.Context, id uuid.UUID) error {
		revoked = id
		return nil
	}

	c, w := newJSONContext(http.MethodPost, "/auth/logout", nil)
	c.Set(string(middleware.UserIDKey), userID)
	f.handler.Logout(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, revoked)

	c, w = newJSONContext(http.MethodPost, "/auth/logout", nil)
	f.handler.Logout(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_ForgotPassword(t *testing.T) {
	f := setupAuthTest()
	user := existingUser(t, "password123")
	f.users.GetByEmailFunc = func(_ context.Context, email string) (*models.User, error) {
		if email == user.Email {
			return user, nil
		}
		return nil, repository.ErrUserNotFound
	}
	var saved *models.PasswordResetCode
	f.codes.ReplaceFunc = func(_ context.Context, code *models.PasswordResetCode) error {
		saved = code
		return nil
	}

	c, w := newJSONContext(http.MethodPost, "/auth/forgot", gin.H{"email": "Green@Example.com"})
	f.handler.ForgotPassword(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, saved)
	assert.Equal(t, "green@example.com", saved.Email)
	assert.Regexp(t, `^\d{4}$`, saved.Code)
	assert.Equal(t, fixedNow.Add(20*time.Minute), saved.ExpiresAt)

	sent := f.mailer.ResetCodes()
	require.Len(t, sent, 1)
	assert.Equal(t, saved.Code, sent[0].Code)
	assert.Equal(t, 20*time.Minute, sent[0].TTL)

	c, w = newJSONContext(http.MethodPost, "/auth/forgot", gin.H{"email": "nobody@example.com"})
	f.handler.ForgotPassword(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "user_not_found")
}

func TestAuthHandler_ForgotPassword_NoMailer(t *testing.T) {
	f := setupAuthTest()
	f.handler.emailService = nil

	c, w := newJSONContext(http.MethodPost, "/auth/forgot", gin.H{"email": "green@example.com"})
	f.handler.ForgotPassword(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthHandler_VerifyCode(t *testing.T) {
	stored := &models.PasswordResetCode{
		ID:        9,
		Email:     "green@example.com",
		Code:      "0427",
		ExpiresAt: fixedNow.Add(5 * time.Minute),
	}

	tests := []struct {
		name       string
		code       string
		now        time.Time
		missing    bool
		wantStatus int
		wantCode   string
	}{
		{name: "valid", code: "0427", now: fixedNow, wantStatus: http.StatusOK},
		{name: "no code requested", code: "0427", now: fixedNow, missing: true, wantStatus: http.StatusBadRequest, wantCode: "code_not_found"},
		{name: "wrong code", code: "1111", now: fixedNow, wantStatus: http.StatusBadRequest, wantCode: "invalid_code"},
		{name: "expired at the deadline", code: "0427", now: stored.ExpiresAt, wantStatus: http.StatusBadRequest, wantCode: "code_expired"},
		{name: "not numeric", code: "04a7", now: fixedNow, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupAuthTest()
			f.handler.now = func() time.Time { return tt.now }
			f.codes.LatestFunc = func(_ context.Context, _ string) (*models.PasswordResetCode, error) {
				if tt.missing {
					return nil, repository.ErrResetCodeNotFound
				}
				return stored, nil
			}

			c, w := newJSONContext(http.MethodPost, "/auth/verify", gin.H{"email": "green@example.com", "code": tt.code})
			f.handler.VerifyCode(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Contains(t, w.Body.String(), `"error":"`+tt.wantCode+`"`)
			}
		})
	}
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	f := setupAuthTest()
	user := existingUser(t, "password123")
	f.users.GetByEmailFunc = func(_ context.Context, _ string) (*models.User, error) {
		return user, nil
	}
	f.codes.LatestFunc = func(_ context.Context, _ string) (*models.PasswordResetCode, error) {
		return &models.PasswordResetCode{Email: user.Email, Code: "1234", ExpiresAt: fixedNow.Add(time.Minute)}, nil
	}

	var newHash string
	f.users.UpdatePasswordFunc = func(_ context.Context, id uuid.UUID, hash string) error {
		assert.Equal(t, user.ID, id)
		newHash = hash
		return nil
	}
	codesDeleted, sessionsRevoked := false, false
	f.codes.DeleteByEmailFunc = func(_ context.Context, email string) error {
		codesDeleted = email == user.Email
		return nil
	}
	f.tokens.RevokeAllForUserFunc = func(_ context.Context, id uuid.UUID) error {
		sessionsRevoked = id == user.ID
		return nil
	}

	c, w := newJSONContext(http.MethodPost, "/auth/reset", gin.H{
		"email": user.Email, "code": "1234", "newPassword": "brand-new-pass",
	})
	f.handler.ResetPassword(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, auth.VerifyPassword("brand-new-pass", newHash))
	assert.True(t, codesDeleted)
	assert.True(t, sessionsRevoked)
	require.Len(t, f.mailer.PasswordChanged(), 1)
	assert.Equal(t, user.Email, f.mailer.PasswordChanged()[0].To)
}

func TestAuthHandler_ResetPassword_WrongCode(t *testing.T) {
	f := setupAuthTest()
	f.codes.LatestFunc = func(_ context.Context, _ string) (*models.PasswordResetCode, error) {
		return &models.PasswordResetCode{Code: "1234", ExpiresAt: fixedNow.Add(time.Minute)}, nil
	}
	f.users.UpdatePasswordFunc = func(_ context.Context, _ uuid.UUID, _ string) error {
		t.Fatal("password must not change")
		return nil
	}

	c, w := newJSONContext(http.MethodPost, "/auth/reset", gin.H{
		"email": "green@example.com", "code": "9999", "newPassword": "brand-new-pass",
	})
	f.handler.ResetPassword(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_code")
}
