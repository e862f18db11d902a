package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/services"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	graph *services.GraphService
}

func NewFollowHandler(graph *services.GraphService) *FollowHandler {
	return &FollowHandler{graph: graph}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/users/:id/follow", h.FollowUser, auth)
	g.POST("/users/:id/unfollow", h.UnfollowUser, auth)
}

func (h *FollowHandler) FollowUser(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	res, err := h.graph.Follow(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	res, err := h.graph.Unfollow(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}
