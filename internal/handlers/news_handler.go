package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greencoach/greencoach-service/internal/logging"
	"github.com/greencoach/greencoach-service/internal/news"
)

// NewsSource is implemented by *news.Client
type NewsSource interface {
	Search(ctx context.Context, query string) ([]news.Article, error)
}

// NewsHandler serves recycling news
type NewsHandler struct {
	source NewsSource
}

// NewNewsHandler creates a news handler
func NewNewsHandler(source NewsSource) *NewsHandler {
	return &NewsHandler{source: source}
}

// Search handles GET /api/news?query=
func (h *NewsHandler) Search(c *gin.Context) {
	query := c.DefaultQuery("query", news.DefaultQuery)

	articles, err := h.source.Search(c.Request.Context(), query)
	switch {
	case errors.Is(err, news.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "news_unavailable",
			"message": "News search is not configured",
		})
		return
	case err != nil:
		logging.FromContext(c).Error("news search failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "upstream_error",
			"message": "Failed to load news",
		})
		return
	}

	c.JSON(http.StatusOK, articles)
}
