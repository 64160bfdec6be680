package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greencoach/greencoach-service/internal/auth"
	"github.com/greencoach/greencoach-service/internal/email"
	"github.com/greencoach/greencoach-service/internal/logging"
	"github.com/greencoach/greencoach-service/internal/middleware"
	"github.com/greencoach/greencoach-service/internal/models"
	"github.com/greencoach/greencoach-service/internal/repository"
)

// DefaultResetCodeTTL is how long a mailed reset code stays valid
const DefaultResetCodeTTL = 20 * time.Minute

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	resetCodeRepo    repository.ResetCodeRepository
	jwtService       *auth.JWTService
	emailService     email.Service
	resetCodeTTL     time.Duration
	now              func() time.Time
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	resetCodeRepo repository.ResetCodeRepository,
	jwtService *auth.JWTService,
) *AuthHandler {
	return &AuthHandler{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		resetCodeRepo:    resetCodeRepo,
		jwtService:       jwtService,
		resetCodeTTL:     DefaultResetCodeTTL,
		now:              time.Now,
	}
}

// WithEmailService sets the mailer used for reset codes
func (h *AuthHandler) WithEmailService(svc email.Service) *AuthHandler {
	h.emailService = svc
	return h
}

// WithResetCodeTTL overrides DefaultResetCodeTTL
func (h *AuthHandler) WithResetCodeTTL(ttl time.Duration) *AuthHandler {
	if ttl > 0 {
		h.resetCodeTTL = ttl
	}
	return h
}

// SignupRequest represents the registration request body
type SignupRequest struct {
	Nickname string  `json:"nickname" binding:"required,max=30"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8,max=72"`
	Birth    *string `json:"birth,omitempty"`
	Gender   *string `json:"gender,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// NicknameCheckRequest represents the nickname availability request body
type NicknameCheckRequest struct {
	Nickname string `json:"nickname" binding:"required"`
}

// RefreshTokenRequest represents the token refresh request body
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// ForgotPasswordRequest asks for a reset code
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyCodeRequest checks a reset code without consuming it
type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=4,numeric"`
}

// ResetPasswordRequest sets a new password using a reset code
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=4,numeric"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=72"`
}

// AuthResponse represents the authentication response.
// Token repeats AccessToken for clients of the first API version.
type AuthResponse struct {
	Token        string               `json:"token"`
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	ExpiresAt    time.Time            `json:"expiresAt"`
	User         *models.UserResponse `json:"user"`
}

func invalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": "Invalid request body: " + err.Error(),
	})
}

func internalError(c *gin.Context, message string, err error) {
	logging.FromContext(c).Error(message, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": message,
	})
}

// Signup handles user registration
// POST /auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		invalidRequest(c, err)
		return
	}

	var birth *time.Time
	if req.Birth != nil {
		b, err := models.ParseDate(*req.Birth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "birth must be a YYYY-MM-DD date",
			})
			return
		}
		birth = b
	}

	ctx := c.Request.Context()
	emailAddr := models.NormalizeEmail(req.Email)

	if _, err := h.userRepo.GetByEmail(ctx, emailAddr); err == nil {
		h.conflict(c, repository.ErrUserExists)
		return
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		internalError(c, "Failed to process registration", err)
		return
	}

	taken, err := h.userRepo.NicknameExists(ctx, req.Nickname)
	if err != nil {
		internalError(c, "Failed to process registration", err)
		return
	}
	if taken {
		h.conflict(c, repository.ErrNicknameTaken)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		internalError(c, "Failed to process registration", err)
		return
	}

	now := h.now()
	user := &models.User{
		ID:            uuid.New(),
		Email:         emailAddr,
		PasswordHash:  passwordHash,
		Nickname:      req.Nickname,
		Birth:         birth,
		Gender:        req.Gender,
		EmailVerified: true,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) || errors.Is(err, repository.ErrNicknameTaken) {
			h.conflict(c, err)
			return
		}
		internalError(c, "Failed to create user", err)
		return
	}

	resp, err := h.issueSession(c, user, nil)
	if err != nil {
		internalError(c, "Failed to create session", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) conflict(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNicknameTaken) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "nickname_taken",
			"message": "This nickname is already taken",
		})
		return
	}
	c.JSON(http.StatusConflict, gin.H{
		"error":   "user_exists",
		"message": "A user with this email already exists",
	})
}

// Login handles user login
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.userRepo.GetByEmail(ctx, models.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			invalidCredentials(c)
			return
		}
		internalError(c, "Failed to authenticate", err)
		return
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		invalidCredentials(c)
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "account_disabled",
			"message": "This account has been disabled",
		})
		return
	}

	if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logging.FromContext(c).Warn("failed to record last login", zap.Error(err))
	} else {
		now := h.now()
		user.LastLoginAt = &now
	}

	resp, err := h.issueSession(c, user, nil)
	if err != nil {
		internalError(c, "Failed to create session", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func invalidCredentials(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":   "invalid_credentials",
		"message": "Invalid email or password",
	})
}

// CheckNickname reports whether a nickname is free
// POST /auth/nickname/check
func (h *AuthHandler) CheckNickname(c *gin.Context) {
	var req NicknameCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	taken, err := h.userRepo.NicknameExists(c.Request.Context(), req.Nickname)
	if err != nil {
		internalError(c, "Failed to check nickname", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": !taken})
}

// RefreshToken exchanges a refresh token for a new pair. The presented token
// is revoked and records its replacement.
// POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	stored, err := h.refreshTokenRepo.GetByHash(ctx, auth.HashToken(req.RefreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) || errors.Is(err, repository.ErrRefreshTokenRevoked) {
			invalidRefreshToken(c)
			return
		}
		internalError(c, "Failed to validate token", err)
		return
	}

	user, err := h.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			invalidRefreshToken(c)
			return
		}
		internalError(c, "Failed to validate token", err)
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "account_disabled",
			"message": "This account has been disabled",
		})
		return
	}

	resp, err := h.issueSession(c, user, stored)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenRevoked) {
			invalidRefreshToken(c)
			return
		}
		internalError(c, "Failed to create session", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func invalidRefreshToken(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":   "invalid_token",
		"message": "Invalid or revoked refresh token",
	})
}

// issueSession signs an access token and stores a new refresh token. When
// previous is set the new token replaces it atomically.
func (h *AuthHandler) issueSession(c *gin.Context, user *models.User, previous *models.RefreshToken) (*AuthResponse, error) {
	accessToken, expiresAt, err := h.jwtService.IssueAccessToken(user.ID, user.Email, user.Nickname)
	if err != nil {
		return nil, err
	}

	refreshToken, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := h.now()
	stored := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: auth.HashToken(refreshToken),
		ExpiresAt: now.Add(h.jwtService.RefreshTokenTTL()),
		CreatedAt: now,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}

	ctx := c.Request.Context()
	if previous != nil {
		err = h.refreshTokenRepo.Rotate(ctx, previous.ID, stored)
	} else {
		err = h.refreshTokenRepo.Create(ctx, stored)
	}
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token:        accessToken,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         user.ToResponse(),
	}, nil
}

// Logout revokes every refresh token of the caller
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Not authenticated",
		})
		return
	}

	if err := h.refreshTokenRepo.RevokeAllForUser(c.Request.Context(), userID); err != nil {
		internalError(c, "Failed to logout", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out",
	})
}

// ForgotPassword mails a fresh 4 digit reset code, replacing earlier ones
// POST /auth/forgot
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	if h.emailService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "email_unavailable",
			"message": "Password reset is not available",
		})
		return
	}

	ctx := c.Request.Context()
	emailAddr := models.NormalizeEmail(req.Email)

	if _, err := h.userRepo.GetByEmail(ctx, emailAddr); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			userNotFound(c)
			return
		}
		internalError(c, "Failed to process request", err)
		return
	}

	code, err := auth.GenerateResetCode()
	if err != nil {
		internalError(c, "Failed to process request", err)
		return
	}

	now := h.now()
	if err := h.resetCodeRepo.Replace(ctx, &models.PasswordResetCode{
		Email:     emailAddr,
		Code:      code,
		ExpiresAt: now.Add(h.resetCodeTTL),
		CreatedAt: now,
	}); err != nil {
		internalError(c, "Failed to process request", err)
		return
	}

	if err := h.emailService.SendPasswordResetCode(ctx, emailAddr, code, h.resetCodeTTL); err != nil {
		internalError(c, "Failed to send reset code", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "A reset code has been sent to your email",
	})
}

func userNotFound(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "user_not_found",
		"message": "No account uses this email",
	})
}

// VerifyCode checks the newest reset code for the email
// POST /auth/verify
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	if !h.checkResetCode(c, models.NormalizeEmail(req.Email), req.Code) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Code verified",
	})
}

// checkResetCode writes the error response and returns false when the code
// is missing, wrong or expired
func (h *AuthHandler) checkResetCode(c *gin.Context, emailAddr, code string) bool {
	stored, err := h.resetCodeRepo.Latest(c.Request.Context(), emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrResetCodeNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "code_not_found",
				"message": "No reset code was requested for this email",
			})
			return false
		}
		internalError(c, "Failed to verify code", err)
		return false
	}

	if !auth.CodesEqual(stored.Code, code) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_code",
			"message": "The code is incorrect",
		})
		return false
	}

	if stored.IsExpired(h.now()) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "code_expired",
			"message": "The code has expired, please request a new one",
		})
		return false
	}

	return true
}

// ResetPassword sets a new password after re-checking the code
// POST /auth/reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		invalidRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	emailAddr := models.NormalizeEmail(req.Email)

	if !h.checkResetCode(c, emailAddr, req.Code) {
		return
	}

	user, err := h.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			userNotFound(c)
			return
		}
		internalError(c, "Failed to reset password", err)
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		internalError(c, "Failed to reset password", err)
		return
	}

	if err := h.userRepo.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		internalError(c, "Failed to reset password", err)
		return
	}

	logger := logging.FromContext(c)
	if err := h.resetCodeRepo.DeleteByEmail(ctx, emailAddr); err != nil {
		logger.Warn("failed to delete used reset codes", zap.Error(err))
	}
	if err := h.refreshTokenRepo.RevokeAllForUser(ctx, user.ID); err != nil {
		logger.Warn("failed to revoke sessions after password reset", zap.Error(err))
	}
	h.notifyPasswordChanged(ctx, logger, user.Email)

	c.JSON(http.StatusOK, gin.H{
		"message": "Password has been reset",
	})
}

// notifyPasswordChanged sends the change notice; failures are only logged
func (h *AuthHandler) notifyPasswordChanged(ctx context.Context, logger *zap.Logger, to string) {
	if h.emailService == nil {
		return
	}
	if err := h.emailService.SendPasswordChangedEmail(ctx, to); err != nil {
		logger.Warn("failed to send password changed email", zap.Error(err))
	}
}
