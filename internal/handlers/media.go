package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/storage"
)

const (
	maxPostMediaSize      = 10 << 20
	maxProfilePictureSize = 2 << 20
)

// saveUpload sniffs and stores one multipart file. accept, when set, limits
// the media kinds allowed.
func saveUpload(ctx context.Context, store storage.Store, fh *multipart.FileHeader, maxSize int64, folder, name string, accept func(models.MediaKind) bool) (*models.Media, error) {
	if fh.Size > maxSize {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("%s exceeds the %dMB limit", fh.Filename, maxSize>>20))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Unreadable upload").SetInternal(err)
	}
	defer f.Close()

	detected, err := storage.Detect(f)
	if err != nil {
		return nil, err
	}
	if accept != nil && !accept(detected.Kind) {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnsupportedMedia, detected.MIME)
	}

	url, err := store.Save(ctx, detected.Reader, storage.Upload{
		Folder:    folder,
		Name:      name,
		Kind:      detected.Kind,
		Extension: detected.Extension,
	})
	if err != nil {
		return nil, err
	}
	return &models.Media{URL: url, Kind: detected.Kind}, nil
}
