package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/socialgraph/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	gifHeader = []byte("GIF89a\x01\x00\x01\x00")
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		mime string
		want models.MediaKind
	}{
		{"image/png", models.MediaImage},
		{"image/jpeg", models.MediaImage},
		{"image/gif", models.MediaGIF},
		{"IMAGE/GIF", models.MediaGIF},
		{"video/mp4", models.MediaVideo},
		{"text/plain; charset=utf-8", models.MediaOther},
		{"application/pdf", models.MediaOther},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.mime))
		})
	}
}

func TestDetectPreservesContent(t *testing.T) {
	body := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0xAB}, 5000)...)

	d, err := Detect(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, models.MediaImage, d.Kind)
	assert.Equal(t, "image/png", d.MIME)
	assert.Equal(t, ".png", d.Extension)

	replay, err := io.ReadAll(d.Reader)
	require.NoError(t, err)
	assert.Equal(t, body, replay)
}

func TestDetectShortInput(t *testing.T) {
	d, err := Detect(bytes.NewReader(gifHeader))
	require.NoError(t, err)
	assert.Equal(t, models.MediaGIF, d.Kind)
	assert.True(t, IsPicture(d.Kind))

	d, err = Detect(strings.NewReader("just some text"))
	require.NoError(t, err)
	assert.Equal(t, models.MediaOther, d.Kind)
	assert.False(t, IsPicture(d.Kind))
}

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads/")
	require.NoError(t, err)

	url, err := store.Save(context.Background(), bytes.NewReader(pngHeader), Upload{
		Folder:    "../avatars",
		Name:      "abc",
		Kind:      models.MediaImage,
		Extension: ".png",
	})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/avatars/abc.png", url)

	written, err := os.ReadFile(filepath.Join(dir, "avatars", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, written)
}

func TestLocalStoreCancelled(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Save(ctx, bytes.NewReader(pngHeader), Upload{Folder: "posts", Name: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResourceType(t *testing.T) {
	assert.Equal(t, "image", resourceType(models.MediaGIF))
	assert.Equal(t, "video", resourceType(models.MediaVideo))
	assert.Equal(t, "raw", resourceType(models.MediaOther))
}
