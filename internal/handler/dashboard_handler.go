package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formagestpro/formagest-api/internal/service"
	"github.com/formagestpro/formagest-api/pkg/response"
)

// DashboardHandler exposes the landing-page metrics endpoint.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Metrics godoc
// @Summary Dashboard metrics
// @Description Aggregated counters, program distribution and occupancy
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Metrics(c *gin.Context) {
	metrics, err := h.dashboard.Metrics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metrics, nil)
}

// Refresh godoc
// @Summary Force dashboard recompute
// @Description Drops the cached payload so the next read recomputes it
// @Tags Dashboard
// @Produce json
// @Success 204
// @Router /dashboard/refresh [post]
func (h *DashboardHandler) Refresh(c *gin.Context) {
	h.dashboard.Invalidate(c.Request.Context())
	response.NoContent(c)
}
