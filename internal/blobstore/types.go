package blobstore

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Folder is the fixed logical folder receipts are stored under.
const Folder = "kitchen-ledger/receipts"

// StoredObject describes a stored receipt artifact.
type StoredObject struct {
	URL       string // public or filesystem location written to receipt_path
	StorageID string // handle for Delete and ViewURL
}

// Store writes receipt artifacts. Implementations do not retry.
type Store interface {
	Store(ctx context.Context, data []byte, logicalName, contentType string) (*StoredObject, error)
	Delete(ctx context.Context, storageID string) error
	ViewURL(ctx context.Context, storageID string) (string, error)
}

// NewObjectName returns a collision-resistant logical name of the form
// receipt_<epochMillis>_<8 hex chars>, followed by .ext when ext is set.
func NewObjectName(now time.Time, ext string) string {
	id := uuid.New()
	name := fmt.Sprintf("receipt_%d_%s", now.UnixMilli(), hex.EncodeToString(id[:4]))
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + ext
	}
	return name
}

// ContentTypeForExt maps a receipt file extension to its MIME type.
func ContentTypeForExt(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
