package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// GCSStore keeps fixtures as objects under a prefix of a GCS bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore returns a store for gs://bucket/prefix using client.
// The caller owns the client.
func NewGCSStore(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ParseGCSURI splits "gs://bucket/some/prefix" into bucket and prefix.
// The prefix may be empty.
func ParseGCSURI(uri string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no bucket): %s", uri)
	}
	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
	}
	return parts[0], prefix, nil
}

// IsGCSURI reports whether location points at GCS rather than a local directory.
func IsGCSURI(location string) bool {
	return strings.HasPrefix(location, "gs://")
}

// ObjectName returns the object path of fixture name.
func (s *GCSStore) ObjectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// ReadJSONMock downloads the fixture object.
func (s *GCSStore) ReadJSONMock(ctx context.Context, name string) ([]byte, error) {
	objectName := s.ObjectName(name)

	rc, err := s.client.Bucket(s.bucket).Object(objectName).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("ReadJSONMock: gs://%s/%s: %w", s.bucket, objectName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ReadJSONMock: open GCS object reader: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("ReadJSONMock: read GCS object: %w", err)
	}
	return data, nil
}

// WriteJSONMock uploads data as the fixture object.
func (s *GCSStore) WriteJSONMock(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(s.ObjectName(name)).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(indentJSON(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("WriteJSONMock: copy to GCS writer: %w", err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("WriteJSONMock: finalize upload: %w", err)
	}
	return nil
}

var _ Store = (*GCSStore)(nil)
