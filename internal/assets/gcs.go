package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore keeps assets as objects in a Google Cloud Storage bucket.
// Objects are named "upload/<asset id><ext>".
type GCSStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

// NewGCSStore connects to GCS. An empty credentialsFile uses the ambient
// application default credentials. An empty baseURL uses the public
// storage.googleapis.com address of the bucket.
func NewGCSStore(ctx context.Context, bucket, credentialsFile, baseURL string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	if baseURL == "" {
		baseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStore{client: client, bucket: bucket, baseURL: baseURL}, nil
}

func (s *GCSStore) objectName(assetID, ext string) string {
	return strings.TrimPrefix(UploadMarker, "/") + assetID + ext
}

func (s *GCSStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	id := newAssetID()
	ext := extensionFor(contentType)

	w := s.client.Bucket(s.bucket).Object(s.objectName(id, ext)).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return "", fmt.Errorf("writing object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing object: %w", err)
	}

	return joinURL(s.baseURL, id, ext), nil
}

// Delete removes the object stored for assetID. The extension is not part
// of the ID, so objects are looked up by prefix.
func (s *GCSStore) Delete(ctx context.Context, assetID string) error {
	if !validAssetID(assetID) {
		return fmt.Errorf("invalid asset id %q", assetID)
	}

	bucket := s.client.Bucket(s.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: s.objectName(assetID, ".")})
	deleted := 0
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("listing objects: %w", err)
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("deleting object: %w", err)
		}
		deleted++
	}
	if deleted == 0 {
		return fmt.Errorf("asset %q: %w", assetID, storage.ErrObjectNotExist)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
