package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/llmrouter/internal/middleware"
	"github.com/huangang/llmrouter/internal/services"
	"github.com/huangang/llmrouter/pkg/response"
)

// AnalyticsHandler serves usage and spend aggregations. Caller routes scope
// to the authenticated caller; admin routes aggregate across everyone.
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Usage returns the authenticated caller's aggregated usage.
func (h *AnalyticsHandler) Usage(c *gin.Context) {
	caller := middleware.GetCaller(c)
	stats, err := h.analytics.GetStats(&caller.ID, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, stats)
}

// ModelBreakdown returns the caller's usage grouped by provider and model.
func (h *AnalyticsHandler) ModelBreakdown(c *gin.Context) {
	caller := middleware.GetCaller(c)
	breakdown, err := h.analytics.GetModelBreakdown(&caller.ID, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, breakdown)
}

// DailyTrend returns the caller's daily spend trend.
func (h *AnalyticsHandler) DailyTrend(c *gin.Context) {
	caller := middleware.GetCaller(c)
	trend, err := h.analytics.GetDailyTrend(&caller.ID, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, trend)
}

// AdminUsage returns cross-caller aggregated usage.
func (h *AnalyticsHandler) AdminUsage(c *gin.Context) {
	stats, err := h.analytics.GetStats(nil, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, stats)
}

// AdminModelBreakdown returns cross-caller usage grouped by provider and model.
func (h *AnalyticsHandler) AdminModelBreakdown(c *gin.Context) {
	breakdown, err := h.analytics.GetModelBreakdown(nil, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, breakdown)
}

// AdminDailyTrend returns the cross-caller daily spend trend.
func (h *AnalyticsHandler) AdminDailyTrend(c *gin.Context) {
	trend, err := h.analytics.GetDailyTrend(nil, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, trend)
}
