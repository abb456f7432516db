// internal/handlers/analytics.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/registration-backend/internal/services"
	"github.com/javajoker/registration-backend/internal/utils"
)

type AnalyticsHandler struct {
	analyticsService    *services.AnalyticsService
	notificationService *services.NotificationService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService, notificationService *services.NotificationService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService:    analyticsService,
		notificationService: notificationService,
	}
}

// GET /analytics/stats
func (h *AnalyticsHandler) GetStatistics(c *gin.Context) {
	stats, err := h.analyticsService.GetRealTimeStatistics(c.Request.Context())
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /analytics/alerts
func (h *AnalyticsHandler) GetAlerts(c *gin.Context) {
	alerts, err := h.analyticsService.GetAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// POST /analytics/alerts/remind (admin)
func (h *AnalyticsHandler) SendReminders(c *gin.Context) {
	alerts, err := h.analyticsService.GetAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err, "application")
		return
	}

	sent, err := h.notificationService.SendReminders(c.Request.Context(), alerts)
	if err != nil {
		respondError(c, err, "notification")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"alerts": len(alerts),
		"sent":   sent,
	})
}
