package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/middleware"
	"github.com/socialgraph/backend/internal/repositories"
	"github.com/socialgraph/backend/internal/services"
	"github.com/socialgraph/backend/internal/storage"
)

func getUserIDFromContext(c echo.Context) (string, error) {
	return middleware.UserID(c)
}

// httpError maps service and repository errors to HTTP errors.
func httpError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, repositories.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Resource not found").SetInternal(err)
	case errors.Is(err, repositories.ErrDuplicateKey):
		return echo.NewHTTPError(http.StatusConflict, "Resource already exists").SetInternal(err)
	case errors.Is(err, repositories.ErrInvalidID):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid ID").SetInternal(err)
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, storage.ErrUnsupportedMedia):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}

// pageFromQuery reads ?page and ?limit. Missing or malformed values fall
// back to the defaults.
func pageFromQuery(c echo.Context) services.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return services.NewPage(page, limit)
}

// bindAndValidate binds the request body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}
