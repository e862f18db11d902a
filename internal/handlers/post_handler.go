package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/services"
	"github.com/socialgraph/backend/internal/storage"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	posts *services.PostService
	media storage.Store
}

func NewPostHandler(posts *services.PostService, media storage.Store) *PostHandler {
	return &PostHandler{posts: posts, media: media}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.POST("/posts", h.CreatePost, auth)
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/trending", h.GetTrendingPosts)
	g.GET("/posts/:id", h.GetPost)
}

// CreatePost accepts a multipart form with title, description and up to
// five "media" files.
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File["media"]
	}
	if len(files) > models.MaxPostMedia {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("At most %d media files per post", models.MaxPostMedia))
	}

	ctx := c.Request().Context()
	media := make([]models.Media, 0, len(files))
	for _, fh := range files {
		m, err := saveUpload(ctx, h.media, fh, maxPostMediaSize, "posts", uuid.NewString(), nil)
		if err != nil {
			return httpError(err)
		}
		media = append(media, *m)
	}

	post, err := h.posts.CreatePost(ctx, userID, req.Title, req.Description, media)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) GetPosts(c echo.Context) error {
	posts, err := h.posts.GetAllPosts(c.Request().Context(), pageFromQuery(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) GetTrendingPosts(c echo.Context) error {
	posts, err := h.posts.GetTrendingPosts(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.posts.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, post)
}
