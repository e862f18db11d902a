package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/services"
)

// FeedHandler serves the authenticated user's timeline
type FeedHandler struct {
	feed *services.FeedService
}

func NewFeedHandler(feed *services.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/feed", h.GetFeed, auth)
}

// GetFeed returns ?page of posts by the user and everyone they follow, newest first.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	posts, err := h.feed.GetTimeline(c.Request().Context(), userID, pageFromQuery(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}
