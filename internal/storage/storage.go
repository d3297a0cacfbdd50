package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
)

var ErrNoPublicURL = errors.New("asset store has no public base URL")

// AssetStore persists generated images and videos. A location is whatever
// Save returned and is what gets recorded on the project.
type AssetStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64) (string, error)
	Open(ctx context.Context, location string) (io.ReadCloser, int64, error)
	PublicURL(ctx context.Context, location string) (string, error)
}

// cleanKey normalises a key to a slash separated relative path and rejects
// anything that would escape the store root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + filepath.ToSlash(strings.TrimSpace(key)))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", errors.New("empty asset key")
	}
	return k, nil
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	}
	return "application/octet-stream"
}
