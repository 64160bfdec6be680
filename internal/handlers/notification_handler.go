package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/greencoach/greencoach-service/internal/middleware"
	"github.com/greencoach/greencoach-service/internal/models"
	"github.com/greencoach/greencoach-service/internal/repository"
)

// NotificationHandler serves the caller's community notifications.
// Every mutating endpoint answers with the updated badge meta, including
// when the id names nothing the caller owns.
type NotificationHandler struct {
	store repository.NotificationRepository
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(store repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// List returns the caller's notifications, newest first
// GET /community/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	items, err := h.store.List(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		internalError(c, "Failed to load notifications", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Meta returns the unread badge count
// GET /community/notifications/meta
func (h *NotificationHandler) Meta(c *gin.Context) {
	h.respondMeta(c, middleware.MustGetUserID(c))
}

// ReadAll marks every notification read
// POST /community/notifications/read-all
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	if err := h.store.MarkAllRead(c.Request.Context(), userID); err != nil {
		internalError(c, "Failed to update notifications", err)
		return
	}
	h.respondMeta(c, userID)
}

// Read marks one notification read
// POST /community/notifications/read?id=
func (h *NotificationHandler) Read(c *gin.Context) {
	id, ok := notificationID(c, c.Query("id"))
	if !ok {
		return
	}
	userID := middleware.MustGetUserID(c)
	if err := h.store.MarkRead(c.Request.Context(), userID, id); ignoreMissing(err) != nil {
		internalError(c, "Failed to update notifications", err)
		return
	}
	h.respondMeta(c, userID)
}

// Delete removes one notification
// DELETE /community/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := notificationID(c, c.Param("id"))
	if !ok {
		return
	}
	userID := middleware.MustGetUserID(c)
	if err := h.store.Delete(c.Request.Context(), userID, id); ignoreMissing(err) != nil {
		internalError(c, "Failed to update notifications", err)
		return
	}
	h.respondMeta(c, userID)
}

func (h *NotificationHandler) respondMeta(c *gin.Context, userID uuid.UUID) {
	unread, err := h.store.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		internalError(c, "Failed to count notifications", err)
		return
	}
	c.JSON(http.StatusOK, models.NotificationMeta{IsLoggedIn: true, UnreadCount: unread})
}

func ignoreMissing(err error) error {
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return nil
	}
	return err
}

func notificationID(c *gin.Context, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "id must be an integer",
		})
		return 0, false
	}
	return id, true
}
