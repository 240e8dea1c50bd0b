package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes receipts to a directory on disk. It is used when no bucket
// is configured; the returned URL is the filesystem path.
type LocalStore struct {
	root string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("NewLocalStore: create %s: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

// Root returns the directory receipts are written to.
func (s *LocalStore) Root() string {
	return s.root
}

// Store writes data to <root>/<logicalName>. contentType is not recorded.
func (s *LocalStore) Store(ctx context.Context, data []byte, logicalName, contentType string) (*StoredObject, error) {
	if filepath.Base(logicalName) != logicalName {
		return nil, fmt.Errorf("LocalStore.Store: invalid name %q", logicalName)
	}
	p := filepath.Join(s.root, logicalName)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return nil, fmt.Errorf("LocalStore.Store: write %s: %w", p, err)
	}
	return &StoredObject{URL: p, StorageID: p}, nil
}

// Delete removes a file previously written by Store. Paths outside the root
// are refused. A missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, storageID string) error {
	if !s.contains(storageID) {
		return fmt.Errorf("LocalStore.Delete: %q is outside %s", storageID, s.root)
	}
	if err := os.Remove(storageID); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("LocalStore.Delete: %w", err)
	}
	return nil
}

// contains reports whether p names a file directly or indirectly under root.
func (s *LocalStore) contains(p string) bool {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}

// ViewURL returns the path itself; local receipts are streamed by the server.
func (s *LocalStore) ViewURL(ctx context.Context, storageID string) (string, error) {
	return storageID, nil
}

var _ Store = (*LocalStore)(nil)
