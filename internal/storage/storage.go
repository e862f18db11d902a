// Package storage persists uploaded media files and returns their public URL.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/socialgraph/backend/internal/models"
)

// sniffLen is how many leading bytes are read to detect the content type.
const sniffLen = 3072

var ErrUnsupportedMedia = errors.New("unsupported media type")

// Upload describes one file to store.
type Upload struct {
	// Folder groups related files, e.g. "posts" or "avatars".
	Folder string
	// Name is the file name without extension, unique within Folder.
	Name string
	Kind models.MediaKind
	// Extension includes the leading dot.
	Extension string
}

// Store saves media and returns the URL clients use to fetch it.
type Store interface {
	Save(ctx context.Context, r io.Reader, upload Upload) (string, error)
}

// Detected is the result of sniffing an upload.
type Detected struct {
	Kind      models.MediaKind
	MIME      string
	Extension string
	// Reader replays the sniffed bytes followed by the rest of the input.
	Reader io.Reader
}

// Detect sniffs the content type of r without consuming it.
func Detect(r io.Reader) (*Detected, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read media header: %w", err)
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	return &Detected{
		Kind:      KindOf(mt.String()),
		MIME:      mt.String(),
		Extension: mt.Extension(),
		Reader:    io.MultiReader(bytes.NewReader(head), r),
	}, nil
}

// KindOf maps a MIME type to the media kind stored on a post.
func KindOf(mime string) models.MediaKind {
	mime = strings.ToLower(mime)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case mime == "image/gif":
		return models.MediaGIF
	case strings.HasPrefix(mime, "image/"):
		return models.MediaImage
	case strings.HasPrefix(mime, "video/"):
		return models.MediaVideo
	default:
		return models.MediaOther
	}
}

// IsPicture reports whether kind can be used as a profile picture.
func IsPicture(kind models.MediaKind) bool {
	return kind == models.MediaImage || kind == models.MediaGIF
}
