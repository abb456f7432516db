// internal/handlers/notification.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/registration-backend/internal/services"
	"github.com/javajoker/registration-backend/internal/utils"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GET /notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	notifications, err := h.notificationService.GetNotificationsByUserID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "notification")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"notifications": notifications,
	})
}

// GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.notificationService.CountUnread(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "notification")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"unread": count,
	})
}

// PUT /notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	notificationID, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkAsRead(c.Request.Context(), notificationID, userID); err != nil {
		respondError(c, err, "notification")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"id":      notificationID,
		"is_read": true,
	})
}

// PUT /notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "notification")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"updated": updated,
	})
}
