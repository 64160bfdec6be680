package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greencoach/greencoach-service/internal/co2"
	"github.com/greencoach/greencoach-service/internal/logging"
)

// CO2Source is implemented by *co2.Client
type CO2Source interface {
	Snapshot(ctx context.Context, region co2.Region) (*co2.Snapshot, error)
}

// CO2Handler serves emission snapshots
type CO2Handler struct {
	source CO2Source
}

// NewCO2Handler creates a CO2 handler
func NewCO2Handler(source CO2Source) *CO2Handler {
	return &CO2Handler{source: source}
}

// World handles GET /api/co2/world
func (h *CO2Handler) World(c *gin.Context) {
	h.serve(c, co2.World)
}

// Korea handles GET /api/co2/korea
func (h *CO2Handler) Korea(c *gin.Context) {
	h.serve(c, co2.Korea)
}

func (h *CO2Handler) serve(c *gin.Context, region co2.Region) {
	snap, err := h.source.Snapshot(c.Request.Context(), region)
	if err != nil {
		logging.FromContext(c).Error("co2 snapshot failed", zap.String("region", region.Code), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "upstream_error",
			"message": "Failed to load CO2 data",
		})
		return
	}
	c.JSON(http.StatusOK, snap)
}
