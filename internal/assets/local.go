package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps assets as files under Dir. The API serves them back at
// BaseURL + UploadMarker.
type LocalStore struct {
	Dir     string
	BaseURL string
}

// NewLocalStore creates dir if needed and returns a LocalStore.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating asset directory: %w", err)
	}
	return &LocalStore{Dir: dir, BaseURL: baseURL}, nil
}

func (s *LocalStore) Upload(_ context.Context, data []byte, contentType string) (string, error) {
	id := newAssetID()
	ext := extensionFor(contentType)

	path := filepath.Join(s.Dir, filepath.FromSlash(id)+ext)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating asset directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing asset: %w", err)
	}
	return joinURL(s.BaseURL, id, ext), nil
}

// Delete removes every file stored for assetID, whatever its extension.
func (s *LocalStore) Delete(_ context.Context, assetID string) error {
	if !validAssetID(assetID) {
		return fmt.Errorf("invalid asset id %q", assetID)
	}

	matches, err := filepath.Glob(filepath.Join(s.Dir, filepath.FromSlash(assetID)) + ".*")
	if err != nil {
		return fmt.Errorf("finding asset: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("asset %q: %w", assetID, fs.ErrNotExist)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing asset: %w", err)
		}
	}
	return nil
}

// Handler serves stored files. Mount it under UploadMarker.
// Directory listings are not served.
func (s *LocalStore) Handler() http.Handler {
	files := http.StripPrefix(strings.TrimSuffix(UploadMarker, "/"), http.FileServer(http.Dir(s.Dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// validAssetID rejects IDs that could escape Dir.
func validAssetID(id string) bool {
	if id == "" || strings.HasPrefix(id, "/") || strings.Contains(id, `\`) {
		return false
	}
	for _, part := range strings.Split(id, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
