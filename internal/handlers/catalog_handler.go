package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/greencoach/greencoach-service/internal/catalog"
)

// CatalogHandler serves recycling categories and disposal guides
type CatalogHandler struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// ListCategories returns the top-level categories
// GET /api/categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Categories())
}

// ListSubcategories returns the subcategories of a category; unknown names give []
// GET /api/categories/:name/sub
func (h *CatalogHandler) ListSubcategories(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Subcategories(c.Param("name")))
}

// Search resolves a free-text keyword to a guide key
// GET /api/subcategories/search?keyword=
func (h *CatalogHandler) Search(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "keyword is required",
		})
		return
	}

	result, ok := h.catalog.Search(keyword)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No guide matches the keyword",
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Detail returns the disposal guide for a key
// GET /api/subcategories/:key/detail
func (h *CatalogHandler) Detail(c *gin.Context) {
	guide, ok := h.catalog.Guide(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Guide not found",
		})
		return
	}
	c.JSON(http.StatusOK, guide)
}
