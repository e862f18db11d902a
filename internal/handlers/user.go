package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/services"
	"github.com/socialgraph/backend/internal/storage"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	users *services.UserService
	posts *services.PostService
	media storage.Store
}

func NewUserHandler(users *services.UserService, posts *services.PostService, media storage.Store) *UserHandler {
	return &UserHandler{users: users, posts: posts, media: media}
}

// RegisterUserRoutes registers user profile-related routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/users", h.GetUsers)
	g.GET("/users/me", h.GetMe, auth)
	g.PATCH("/users/me", h.UpdateMe, auth)
	g.POST("/users/me/profile-picture", h.UploadProfilePicture, auth)
	g.GET("/users/suggested", h.GetSuggested, auth)
	g.GET("/users/by-ids", h.GetUsersByIDs)
	g.GET("/users/:id", h.GetUser)
	g.GET("/users/:id/posts", h.GetUserPosts)
}

func (h *UserHandler) GetUsers(c echo.Context) error {
	users, err := h.users.GetAll(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// GetMe returns the authenticated user's profile
func (h *UserHandler) GetMe(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe updates the authenticated user's editable fields
func (h *UserHandler) UpdateMe(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UploadProfilePicture stores the "profilePicture" file and sets it on the
// authenticated user.
func (h *UserHandler) UploadProfilePicture(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("profilePicture")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "profilePicture file is required")
	}

	ctx := c.Request().Context()
	media, err := saveUpload(ctx, h.media, fh, maxProfilePictureSize, "avatars", userID, storage.IsPicture)
	if err != nil {
		return httpError(err)
	}
	user, err := h.users.UpdateProfilePicture(ctx, userID, media.URL)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetSuggested(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}
	users, err := h.users.GetSuggested(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// GetUsersByIDs resolves ?ids=a,b,c. Malformed ids are ignored.
func (h *UserHandler) GetUsersByIDs(c echo.Context) error {
	var ids []string
	for _, id := range strings.Split(c.QueryParam("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	users, err := h.users.GetByIDs(c.Request().Context(), ids)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.users.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUserPosts(c echo.Context) error {
	posts, err := h.posts.GetPostsByUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}
