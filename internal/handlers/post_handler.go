package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/greencoach/greencoach-service/internal/middleware"
	"github.com/greencoach/greencoach-service/internal/models"
	"github.com/greencoach/greencoach-service/internal/repository"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 100

	// introPostSlug addresses the pinned welcome post
	introPostSlug = "intro-post"
	introPostID   = 1
)

// PostHandler serves the community feed
type PostHandler struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	notifier *Notifier
}

// NewPostHandler creates a new post handler
func NewPostHandler(postRepo repository.PostRepository, userRepo repository.UserRepository, notifier *Notifier) *PostHandler {
	return &PostHandler{
		postRepo: postRepo,
		userRepo: userRepo,
		notifier: notifier,
	}
}

// CreatePostRequest represents the post creation request body
type CreatePostRequest struct {
	Text            string         `json:"text" binding:"max=5000"`
	Media           []models.Media `json:"media" binding:"max=10,dive"`
	AuthorName      *string        `json:"authorName,omitempty"`
	AuthorHeadline  *string        `json:"authorHeadline,omitempty"`
	AuthorAvatarURL *string        `json:"authorAvatarUrl,omitempty"`
}

// LikeRequest toggles a like on a post or comment
type LikeRequest struct {
	Liked *bool `json:"liked" binding:"required"`
}

// Feed lists the newest posts
// GET /community/feed
func (h *PostHandler) Feed(c *gin.Context) {
	limit := defaultFeedLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "limit must be a positive integer",
			})
			return
		}
		limit = min(n, maxFeedLimit)
	}

	posts, err := h.postRepo.List(c.Request.Context(), limit)
	if err != nil {
		internalError(c, "Failed to load feed", err)
		return
	}

	resp := make([]*models.PostResponse, len(posts))
	for i, p := range posts {
		resp[i] = p.ToResponse()
	}
	c.JSON(http.StatusOK, resp)
}

// CreatePost publishes a post as the caller
// POST /community/posts
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Media) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "a post needs text or media",
		})
		return
	}

	userID := middleware.MustGetUserID(c)
	name, ok := authorName(c, h.userRepo, userID, req.AuthorName)
	if !ok {
		return
	}

	post := &models.Post{
		OwnerID:         &userID,
		AuthorName:      name,
		AuthorAvatarURL: req.AuthorAvatarURL,
		Text:            strings.TrimSpace(req.Text),
		Media:           req.Media,
	}
	if req.AuthorHeadline != nil {
		post.AuthorHeadline = strings.TrimSpace(*req.AuthorHeadline)
	}

	if err := h.postRepo.Create(c.Request.Context(), post); err != nil {
		internalError(c, "Failed to create post", err)
		return
	}
	c.JSON(http.StatusCreated, post.ToResponse())
}

// LikePost adds or removes one like. Liking someone else's post notifies them.
// POST /community/posts/:postId/like
func (h *PostHandler) LikePost(c *gin.Context) {
	postID, ok := postIDParam(c)
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

	ctx := c.Request.Context()
	post, err := h.postRepo.AdjustLikes(ctx, postID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			postNotFound(c)
			return
		}
		internalError(c, "Failed to update like", err)
		return
	}

	if *req.Liked {
		h.notifier.notifyOwner(ctx, post.OwnerID, &models.Notification{
			Type:        models.NotificationLike,
			ActorID:     middleware.MustGetUserID(c).String(),
			ActorName:   actorName(c),
			PostID:      &post.ID,
			PreviewText: models.TruncatePreview(post.Text),
		})
	}

	resp := post.ToResponse()
	resp.Liked = *req.Liked
	c.JSON(http.StatusOK, resp)
}

// postIDParam parses :postId, accepting the intro post slug
func postIDParam(c *gin.Context) (int64, bool) {
	raw := c.Param("postId")
	if raw == introPostSlug {
		return introPostID, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid postId: " + raw,
		})
		return 0, false
	}
	return id, true
}

func postNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   "post_not_found",
		"message": "Post not found",
	})
}

// authorName picks the display name: the requested one, the token nickname,
// then the stored nickname.
func authorName(c *gin.Context, users repository.UserRepository, userID uuid.UUID, requested *string) (string, bool) {
	if requested != nil {
		if name := strings.TrimSpace(*requested); name != "" {
			return name, true
		}
	}
	if name := middleware.GetUserNickname(c); name != "" {
		return name, true
	}

	user, err := users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "user_not_found",
				"message": "User not found",
			})
			return "", false
		}
		internalError(c, "Failed to load author", err)
		return "", false
	}
	return user.Nickname, true
}

func actorName(c *gin.Context) *string {
	if name := middleware.GetUserNickname(c); name != "" {
		return &name
	}
	return nil
}
