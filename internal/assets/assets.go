// Package assets stores component images outside the database. Every backend
// returns URLs containing UploadMarker followed by the asset ID and a file
// extension, so the ID can be recovered from a stored URL alone.
package assets

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// UploadMarker separates the base URL from the asset ID.
const UploadMarker = "/upload/"

// Store uploads and deletes image assets.
type Store interface {
	Upload(ctx context.Context, data []byte, contentType string) (url string, err error)
	Delete(ctx context.Context, assetID string) error
}

// AssetIDFromURL extracts the asset ID from a URL produced by a Store: the
// text after the first UploadMarker with the trailing file extension removed.
// It reports false when the URL has no marker or the ID is empty.
func AssetIDFromURL(url string) (string, bool) {
	_, rest, found := strings.Cut(url, UploadMarker)
	if !found {
		return "", false
	}
	if i := strings.LastIndex(rest, "."); i >= 0 && !strings.Contains(rest[i:], "/") {
		rest = rest[:i]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

// newAssetID returns a fresh ID for a component image.
func newAssetID() string {
	return "components/" + uuid.NewString()
}

// extensionFor maps a content type to the file extension used in URLs.
func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	}
	return ".bin"
}

func joinURL(base, assetID, ext string) string {
	return strings.TrimRight(base, "/") + UploadMarker + assetID + ext
}
