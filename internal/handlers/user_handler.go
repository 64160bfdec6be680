package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greencoach/greencoach-service/internal/auth"
	"github.com/greencoach/greencoach-service/internal/email"
	"github.com/greencoach/greencoach-service/internal/logging"
	"github.com/greencoach/greencoach-service/internal/middleware"
	"github.com/greencoach/greencoach-service/internal/models"
	"github.com/greencoach/greencoach-service/internal/repository"
)

// UserHandler handles user-related requests
type UserHandler struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	emailService     email.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(userRepo repository.UserRepository, refreshTokenRepo repository.RefreshTokenRepository) *UserHandler {
	return &UserHandler{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
	}
}

// WithEmailService enables password change notices
func (h *UserHandler) WithEmailService(svc email.Service) *UserHandler {
	h.emailService = svc
	return h
}

// UpdateProfileRequest represents the profile update request body.
// Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Nickname  *string `json:"nickname,omitempty"`
	Birth     *string `json:"birth,omitempty"`
	Gender    *string `json:"gender,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// ChangePasswordRequest represents the password change request body
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
}

func (h *UserHandler) loadCurrentUser(c *gin.Context) (*models.User, bool) {
	userID := middleware.MustGetUserID(c)

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "user_not_found",
				"message": "User not found",
			})
			return nil, false
		}
		internalError(c, "Failed to retrieve profile", err)
		return nil, false
	}
	return user, true
}

// GetProfile retrieves the authenticated user's profile
// GET /users/me
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := h.loadCurrentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user.ToResponse())
}

// UpdateProfile applies the non-nil fields of the request. A birth that is
// not a valid date clears the stored birth.
// PATCH /users/me
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	user, ok := h.loadCurrentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if req.Nickname != nil {
		nickname := strings.TrimSpace(*req.Nickname)
		if nickname == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "nickname must not be blank",
			})
			return
		}
		if nickname != user.Nickname {
			taken, err := h.userRepo.NicknameExists(ctx, nickname)
			if err != nil {
				internalError(c, "Failed to update profile", err)
				return
			}
			if taken {
				nicknameTaken(c)
				return
			}
		}
		user.Nickname = nickname
	}
	if req.Birth != nil {
		birth, err := models.ParseDate(*req.Birth)
		if err != nil {
			birth = nil
		}
		user.Birth = birth
	}
	if req.Gender != nil {
		user.Gender = req.Gender
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}

	if err := h.userRepo.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNicknameTaken) {
			nicknameTaken(c)
			return
		}
		internalError(c, "Failed to update profile", err)
		return
	}

	c.JSON(http.StatusOK, user.ToResponse())
}

func nicknameTaken(c *gin.Context) {
	c.JSON(http.StatusConflict, gin.H{
		"error":   "nickname_taken",
		"message": "This nickname is already taken",
	})
}

// ChangePassword changes the authenticated user's password and signs out
// every other session by revoking its refresh tokens.
// POST /users/me/change-password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		invalidRequest(c, err)
		return
	}

	user, ok := h.loadCurrentUser(c)
	if !ok {
		return
	}

	if !auth.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_password",
			"message": "Current password is incorrect",
		})
		return
	}

	if auth.VerifyPassword(req.NewPassword, user.PasswordHash) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "same_password",
			"message": "New password must be different from current password",
		})
		return
	}

	newPasswordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		internalError(c, "Failed to process password change", err)
		return
	}

	ctx := c.Request.Context()
	if err := h.userRepo.UpdatePassword(ctx, user.ID, newPasswordHash); err != nil {
		internalError(c, "Failed to update password", err)
		return
	}

	logger := logging.FromContext(c)
	if err := h.refreshTokenRepo.RevokeAllForUser(ctx, user.ID); err != nil {
		logger.Warn("failed to revoke sessions after password change", zap.Error(err))
	}
	if h.emailService != nil {
		if err := h.emailService.SendPasswordChangedEmail(ctx, user.Email); err != nil {
			logger.Warn("failed to send password changed email", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password changed successfully",
	})
}
