package pipeline

import (
	"context"

	"github.com/dvloznov/kitchen-ledger/internal/blobstore"
	"github.com/dvloznov/kitchen-ledger/internal/domain"
	infra "github.com/dvloznov/kitchen-ledger/internal/infra/bigquery"
)

// VisionExtractor reads a receipt image or PDF into an untrusted extraction.
// This interface enables mocking of the model call.
type VisionExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (*Extraction, error)
}

// BlobStore stores receipt artifacts.
type BlobStore interface {
	Store(ctx context.Context, data []byte, logicalName, contentType string) (*blobstore.StoredObject, error)
}

// TransactionGateway resolves owners and writes classified records.
type TransactionGateway interface {
	ResolveOwner(ctx context.Context, chatIdentity string) (*domain.User, error)
	Save(ctx context.Context, route domain.Route, receipt domain.ReceiptRef, ownerID, rawResponse string) (domain.Transaction, error)
}

// ChatTransport is the chat side of a session: replies and file downloads.
type ChatTransport interface {
	SendText(ctx context.Context, chatID int64, text string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// ModelOutputArchive keeps raw model answers. Optional.
type ModelOutputArchive interface {
	InsertModelOutput(ctx context.Context, row *infra.ModelOutputRow) error
}

// TransactionMirror copies persisted transactions elsewhere. Optional.
type TransactionMirror interface {
	MirrorTransaction(ctx context.Context, tx domain.Transaction) error
}
