package blobstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const (
	publicHost = "https://storage.googleapis.com/"

	// DefaultSignedURLTTL is how long a signed view URL stays valid.
	DefaultSignedURLTTL = 15 * time.Minute

	uploadTimeout = 2 * time.Minute
)

// GCSStore keeps receipts in a Google Cloud Storage bucket. It assumes
// Application Default Credentials are configured.
type GCSStore struct {
	client       *storage.Client
	bucket       string
	signedURLTTL time.Duration
}

// NewGCSStore creates a store with a shared storage client.
func NewGCSStore(ctx context.Context, bucket string, signedURLTTL time.Duration) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSStore: bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: create storage client: %w", err)
	}
	if signedURLTTL <= 0 {
		signedURLTTL = DefaultSignedURLTTL
	}
	return &GCSStore{client: client, bucket: bucket, signedURLTTL: signedURLTTL}, nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// Bucket returns the bucket name.
func (s *GCSStore) Bucket() string {
	return s.bucket
}

// Store uploads data under Folder/logicalName.
func (s *GCSStore) Store(ctx context.Context, data []byte, logicalName, contentType string) (*StoredObject, error) {
	objectName := path.Join(Folder, logicalName)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("GCSStore.Store: write %s: %w", objectName, err)
	}

	// Close to finalize the upload.
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("GCSStore.Store: finalize upload %s: %w", objectName, err)
	}

	return &StoredObject{
		URL:       publicHost + s.bucket + "/" + objectName,
		StorageID: objectName,
	}, nil
}

// Delete removes an object.
func (s *GCSStore) Delete(ctx context.Context, storageID string) error {
	if err := s.client.Bucket(s.bucket).Object(storageID).Delete(ctx); err != nil {
		return fmt.Errorf("GCSStore.Delete: %s: %w", storageID, err)
	}
	return nil
}

// ViewURL returns a V4 signed GET URL for the object.
func (s *GCSStore) ViewURL(ctx context.Context, storageID string) (string, error) {
	u, err := s.client.Bucket(s.bucket).SignedURL(storageID, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(s.signedURLTTL),
	})
	if err != nil {
		return "", fmt.Errorf("GCSStore.ViewURL: sign %s: %w", storageID, err)
	}
	return u, nil
}

// Fetch downloads an object's bytes.
func (s *GCSStore) Fetch(ctx context.Context, storageID string) ([]byte, error) {
	rc, err := s.client.Bucket(s.bucket).Object(storageID).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("GCSStore.Fetch: reading object %s/%s: %w", s.bucket, storageID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("GCSStore.Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// StorageIDFromURL returns the object name when rawURL points into this
// store's bucket.
func (s *GCSStore) StorageIDFromURL(rawURL string) (string, bool) {
	return ObjectFromURL(s.bucket, rawURL)
}

// ObjectFromURL extracts the object name from a public storage URL or a
// gs:// URI for the given bucket.
func ObjectFromURL(bucket, rawURL string) (string, bool) {
	for _, prefix := range []string{publicHost + bucket + "/", "gs://" + bucket + "/"} {
		if strings.HasPrefix(rawURL, prefix) {
			object := strings.TrimPrefix(rawURL, prefix)
			if i := strings.IndexAny(object, "?#"); i >= 0 {
				object = object[:i]
			}
			return object, object != ""
		}
	}
	return "", false
}

// ParseGCSURI splits gs://bucket/path/to/file into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

var _ Store = (*GCSStore)(nil)
