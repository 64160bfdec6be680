// Package middleware holds the Gin middleware shared by the route groups:
// bearer authentication, rate limiting and request IDs.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/greencoach/greencoach-service/internal/auth"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey ContextKey = "user_id"

	// UserEmailKey is the context key for the authenticated user's email
	UserEmailKey ContextKey = "user_email"

	// UserNicknameKey is the context key for the nickname carried in the token
	UserNicknameKey ContextKey = "user_nickname"
)

// ErrNotAuthenticated is returned by the getters when no user is on the context
var ErrNotAuthenticated = errors.New("user not authenticated")

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// Required returns a middleware that requires a valid JWT token
// Returns 401 Unauthorized if the token is missing or invalid
func (m *AuthMiddleware) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, userID, err := m.authenticate(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": err.Error(),
			})
			return
		}

		setUser(c, userID, claims)
		c.Next()
	}
}

// Optional returns a middleware that extracts user info if a valid token is present
// Continues execution even if the token is missing or invalid
func (m *AuthMiddleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, userID, err := m.authenticate(c); err == nil {
			setUser(c, userID, claims)
		}
		c.Next()
	}
}

func setUser(c *gin.Context, userID uuid.UUID, claims *auth.Claims) {
	c.Set(string(UserIDKey), userID)
	c.Set(string(UserEmailKey), claims.Email)
	c.Set(string(UserNicknameKey), claims.Nickname)
}

func (m *AuthMiddleware) authenticate(c *gin.Context) (*auth.Claims, uuid.UUID, error) {
	claims, err := m.extractAndValidateToken(c)
	if err != nil {
		return nil, uuid.Nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, uuid.Nil, errors.New("invalid user ID in token")
	}
	return claims, userID, nil
}

// extractAndValidateToken extracts the JWT token from the request and validates it
func (m *AuthMiddleware) extractAndValidateToken(c *gin.Context) (*auth.Claims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errors.New("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errors.New("invalid authorization header format")
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return m.jwtService.ValidateToken(tokenString)
}

// GetUserID retrieves the authenticated user's ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userID, exists := c.Get(string(UserIDKey))
	if !exists {
		return uuid.Nil, ErrNotAuthenticated
	}

	id, ok := userID.(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("invalid user ID format")
	}

	return id, nil
}

// OptionalUserID returns the caller's ID, or nil on anonymous requests
func OptionalUserID(c *gin.Context) *uuid.UUID {
	id, err := GetUserID(c)
	if err != nil {
		return nil
	}
	return &id
}

// GetUserNickname returns the nickname from the token, empty when absent
func GetUserNickname(c *gin.Context) string {
	return c.GetString(string(UserNicknameKey))
}

// MustGetUserID retrieves the user ID from context, panics if not found
// Use this only in handlers protected by Required() middleware
func MustGetUserID(c *gin.Context) uuid.UUID {
	userID, err := GetUserID(c)
	if err != nil {
		panic("user ID not found in context - ensure Required() middleware is applied")
	}
	return userID
}
