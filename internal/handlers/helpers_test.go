package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/repositories"
	"github.com/socialgraph/backend/internal/services"
	"github.com/socialgraph/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("post: %w", repositories.ErrNotFound), http.StatusNotFound},
		{"duplicate", fmt.Errorf("user: %w", repositories.ErrDuplicateKey), http.StatusConflict},
		{"invalid id", fmt.Errorf("%w: %q", repositories.ErrInvalidID, "x"), http.StatusBadRequest},
		{"invalid input", fmt.Errorf("%w: too many files", services.ErrInvalidInput), http.StatusBadRequest},
		{"unsupported media", fmt.Errorf("%w: text/plain", storage.ErrUnsupportedMedia), http.StatusBadRequest},
		{"http error passes through", echo.NewHTTPError(http.StatusTeapot), http.StatusTeapot},
		{"other", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he, ok := httpError(tt.err).(*echo.HTTPError)
			require.True(t, ok)
			assert.Equal(t, tt.want, he.Code)
		})
	}
}

func TestPageFromQuery(t *testing.T) {
	e := echo.New()
	tests := []struct {
		query string
		want  services.Page
	}{
		{"", services.Page{Number: 1, Limit: services.DefaultPageLimit}},
		{"?page=3&limit=20", services.Page{Number: 3, Limit: 20}},
		{"?page=abc&limit=1000", services.Page{Number: 1, Limit: services.MaxPageLimit}},
	}
	for _, tt := range tests {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/posts"+tt.query, nil), httptest.NewRecorder())
		assert.Equal(t, tt.want, pageFromQuery(c), tt.query)
	}
}

func TestUsernameFrom(t *testing.T) {
	assert.Equal(t, "janedoe", usernameFrom("Jane Doe", "jane@example.com"))
	assert.Equal(t, "jane.d", usernameFrom("", "jane.d@example.com"))
	assert.Equal(t, "userab", usernameFrom("", "ab@example.com"))
	assert.Len(t, usernameFrom("a very long display name indeed", ""), 20)
}
