package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/onlyfriends/server/internal/repositories"
)

// NotificationHandler handles the caller's notification feed
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationRepo repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notificationRepository: notificationRepo}
}

// RegisterNotificationRoutes registers notification-related routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
}

// GetNotifications returns the caller's notifications, newest first, paged
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	claims := currentClaims(c)

	page := 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 1 {
		page = p
	}
	limit := 20
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	notifications, total, err := h.notificationRepository.GetByRecipientID(claims.AccountID, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"total":         total,
		"page":          page,
	})
}

// GetUnreadCount returns the number of unread notifications
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	claims := currentClaims(c)

	count, err := h.notificationRepository.GetUnreadCount(claims.AccountID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]int64{"unread_count": count})
}

// MarkAsRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	claims := currentClaims(c)

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondErrorMsg(c, http.StatusBadRequest, "Invalid notification ID")
	}

	if err := h.notificationRepository.MarkAsRead(notificationID, claims.AccountID); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"message": "marked as read"})
}

// MarkAllAsRead marks every unread notification of the caller as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	claims := currentClaims(c)

	if err := h.notificationRepository.MarkAllAsRead(claims.AccountID); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, http.StatusOK, map[string]string{"message": "all marked as read"})
}
