package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func runJWT(t *testing.T, header string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/feed/timeline", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	h := JWTAuth(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return c, h(c)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	return he.Code
}

func TestJWTAuthValidToken(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Email: "a@example.com"}
	token, err := NewToken(testSecret, time.Hour, user)
	require.NoError(t, err)

	c, err := runJWT(t, "Bearer "+token)
	require.NoError(t, err)

	id, err := UserID(c)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), id)
}

func TestJWTAuthRejects(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID()}
	expired, err := NewToken(testSecret, -time.Minute, user)
	require.NoError(t, err)
	otherKey, err := NewToken("other-secret", time.Hour, user)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage", "Bearer not.a.jwt"},
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + otherKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runJWT(t, tt.header)
			assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
		})
	}
}

func TestUserIDWithoutClaims(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := UserID(c)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}
