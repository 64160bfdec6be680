package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/greencoach/greencoach-service/internal/middleware"
	"github.com/greencoach/greencoach-service/internal/models"
	"github.com/greencoach/greencoach-service/internal/repository"
)

// CommentHandler serves comments and one-level replies on posts
type CommentHandler struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	notifier    *Notifier
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	notifier *Notifier,
) *CommentHandler {
	return &CommentHandler{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		notifier:    notifier,
	}
}

// CreateCommentRequest represents the comment creation request body
type CreateCommentRequest struct {
	Content    string  `json:"content" binding:"required,max=2000"`
	ParentID   *int64  `json:"parentId,omitempty"`
	AuthorName *string `json:"authorName,omitempty"`
}

// ListComments returns root comments in creation order with their replies
// GET /community/posts/:postId/comments
func (h *CommentHandler) ListComments(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	comments, err := h.commentRepo.ListByPost(c.Request.Context(), postID)
	if err != nil {
		internalError(c, "Failed to load comments", err)
		return
	}
	c.JSON(http.StatusOK, models.ThreadComments(comments, middleware.OptionalUserID(c)))
}

// CreateComment adds a comment, or a reply when parentId is set. A reply to
// a reply attaches to the same root so threads stay one level deep.
// POST /community/posts/:postId/comments
func (h *CommentHandler) CreateComment(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "content must not be blank",
		})
		return
	}

	ctx := c.Request.Context()
	post, err := h.postRepo.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			postNotFound(c)
			return
		}
		internalError(c, "Failed to create comment", err)
		return
	}

	var parent *models.Comment
	if req.ParentID != nil {
		parent, err = h.commentRepo.GetByID(ctx, *req.ParentID)
		if err != nil && !errors.Is(err, repository.ErrCommentNotFound) {
			internalError(c, "Failed to create comment", err)
			return
		}
		if parent == nil || parent.PostID != postID {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "parentId does not belong to this post",
			})
			return
		}
	}

	userID := middleware.MustGetUserID(c)
	name, ok := authorName(c, h.userRepo, userID, req.AuthorName)
	if !ok {
		return
	}

	comment := &models.Comment{
		PostID:     postID,
		OwnerID:    &userID,
		AuthorName: name,
		Content:    content,
	}
	if parent != nil {
		root := parent.ID
		if parent.ParentID != nil {
			root = *parent.ParentID
		}
		comment.ParentID = &root
	}

	if err := h.commentRepo.Create(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			postNotFound(c)
			return
		}
		internalError(c, "Failed to create comment", err)
		return
	}

	notification := &models.Notification{
		Type:        models.NotificationComment,
		ActorID:     userID.String(),
		ActorName:   &name,
		PostID:      &post.ID,
		CommentID:   &comment.ID,
		PreviewText: models.TruncatePreview(content),
	}
	owner := post.OwnerID
	if parent != nil {
		notification.Type = models.NotificationReply
		notification.ReplyToName = &parent.AuthorName
		owner = parent.OwnerID
	}
	h.notifier.notifyOwner(ctx, owner, notification)

	c.JSON(http.StatusCreated, comment.ToResponse(&userID))
}

// LikeComment adds or removes one like
// POST /community/comments/:commentId/like
func (h *CommentHandler) LikeComment(c *gin.Context) {
	commentID, ok := commentIDParam(c)
	if !ok {
		return
	}
	var req LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	delta := -1
	if *req.Liked {
		delta = 1
	}

	comment, err := h.commentRepo.AdjustLikes(c.Request.Context(), commentID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			commentNotFound(c)
			return
		}
		internalError(c, "Failed to update like", err)
		return
	}

	resp := comment.ToResponse(middleware.OptionalUserID(c))
	resp.Liked = *req.Liked
	c.JSON(http.StatusOK, resp)
}

// DeleteComment removes the caller's comment together with its replies
// DELETE /community/comments/:commentId
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	commentID, ok := commentIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	comment, err := h.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			commentNotFound(c)
			return
		}
		internalError(c, "Failed to delete comment", err)
		return
	}

	userID := middleware.MustGetUserID(c)
	if comment.OwnerID == nil || *comment.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "Only the author can delete this comment",
		})
		return
	}

	if _, err := h.commentRepo.DeleteWithReplies(ctx, commentID); err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			commentNotFound(c)
			return
		}
		internalError(c, "Failed to delete comment", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func commentIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("commentId"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid commentId: " + c.Param("commentId"),
		})
		return 0, false
	}
	return id, true
}

func commentNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   "comment_not_found",
		"message": "Comment not found",
	})
}
