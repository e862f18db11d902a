package firebase

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFirebaseRequiresPath(t *testing.T) {
	_, err := InitFirebase(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestInitFirebaseMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service-account.json")

	app, err := InitFirebase(context.Background(), path)
	require.Error(t, err)
	assert.Nil(t, app)
	assert.ErrorContains(t, err, path)
}
