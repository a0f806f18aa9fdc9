package blob

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSStore writes payloads to a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore initializes a GCS client and verifies the bucket is reachable.
// Authentication is handled via Google's Application Default Credentials.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	// Fail fast on startup if the bucket is missing or inaccessible.
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			zap.L().Warn("failed to close GCS client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to get GCS bucket %q attributes: %w", bucket, err)
	}

	return &GCSStore{client: client, bucket: bucket}, nil
}

// Put uploads data to the bucket under key and returns its gs:// URI.
func (s *GCSStore) Put(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	wc := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := wc.Write(data); err != nil {
		// Close anyway to release resources; the write error is the one to report.
		if closeErr := wc.Close(); closeErr != nil {
			zap.L().Warn("failed to close GCS writer after write failure", zap.Error(closeErr))
		}
		return "", fmt.Errorf("failed to write GCS object %s: %w", key, err)
	}

	// Close finalizes the upload and flushes buffered data.
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for object %s: %w", key, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}

// Close releases the underlying GCS client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
