package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/services"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterNotificationRoutes registers notification routes; all require auth.
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/notifications", h.GetNotifications, auth)
	g.GET("/notifications/unread-count", h.GetUnreadCount, auth)
	g.POST("/notifications/mark-read", h.MarkAllAsRead, auth)
}

func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	notifications, err := h.notifications.GetNotifications(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	count, err := h.notifications.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	if err := h.notifications.MarkAllRead(c.Request().Context(), userID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "All notifications marked as read"})
}
