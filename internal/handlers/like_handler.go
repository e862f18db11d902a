package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/services"
)

// LikeHandler handles like toggling on posts
type LikeHandler struct {
	posts *services.PostService
}

func NewLikeHandler(posts *services.PostService) *LikeHandler {
	return &LikeHandler{posts: posts}
}

func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/posts/:id/like", h.ToggleLike, auth)
}

// ToggleLike likes the post, or removes the like when already liked.
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	res, err := h.posts.ToggleLike(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}
