package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chatlink/internal/analytics"
	apperrors "chatlink/internal/errors"
)

// DashboardHandler serves the admin analytics dashboard.
type DashboardHandler struct {
	composer *analytics.Composer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(composer *analytics.Composer) *DashboardHandler {
	return &DashboardHandler{composer: composer}
}

// DashboardQuery validates the page-level range parameters. Widget overrides
// carry their own keys and fall back per widget, so only the shared ones are
// bound here.
type DashboardQuery struct {
	Range      string `form:"range" binding:"omitempty,range_preset"`
	RangeStart string `form:"range_start" binding:"omitempty"`
	RangeEnd   string `form:"range_end" binding:"omitempty"`
	Interval   string `form:"interval" binding:"omitempty"`
}

// Get composes the full dashboard
// @Summary     Admin analytics dashboard
// @Description Compose every widget for the requested time ranges. Widgets accept per-widget overrides ({key}, {key}_start, {key}_end, {key}_interval) on top of the page-level range.
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       range query string false "Page-level preset (7d, 30d, this_month, lifetime)"
// @Param       interval query string false "Bucket width, e.g. 24h"
// @Success     200 {object} analytics.Dashboard "Composed dashboard"
// @Failure     400 {object} ErrorResponse "Unknown range preset"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Admin only"
// @Router      /admin/dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	var query DashboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown range preset"))
		return
	}

	dash, err := h.composer.Compose(c.Request.Context(), c.Request.URL.Query(), time.Now().UTC())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dash)
}
