package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/services"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	posts *services.PostService
}

func NewCommentHandler(posts *services.PostService) *CommentHandler {
	return &CommentHandler{posts: posts}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/posts/:id/comments", h.CreateComment, auth)
	g.GET("/posts/:id/comments", h.GetComments)
}

func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.posts.AddComment(c.Request().Context(), c.Param("id"), userID, req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// GetComments returns the post's comments, oldest first.
func (h *CommentHandler) GetComments(c echo.Context) error {
	comments, err := h.posts.GetComments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, comments)
}
