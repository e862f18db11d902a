package validators

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSignup(t *testing.T) {
	v := NewValidator()

	require.NoError(t, v.Validate(models.SignupRequest{Username: "alice", Email: "a@example.com", Password: "secret1"}))

	err := v.Validate(models.SignupRequest{Username: "al", Email: "nope", Password: "123"})
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	msg := he.Message.(string)
	assert.Contains(t, msg, "username must be at least 3 characters")
	assert.Contains(t, msg, "email must be a valid email")
	assert.Contains(t, msg, "password must be at least 6 characters")
}

func TestValidateComment(t *testing.T) {
	v := NewValidator()
	assert.Error(t, v.Validate(models.CreateCommentRequest{}))
	assert.NoError(t, v.Validate(models.CreateCommentRequest{Text: "nice"}))
}
