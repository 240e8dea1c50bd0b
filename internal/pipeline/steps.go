package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/blobstore"
	"github.com/dvloznov/kitchen-ledger/internal/domain"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
)

// Stage is the position of a session in the ingestion state machine.
type Stage string

const (
	StageReceived     Stage = "received"
	StageAuthorizing  Stage = "authorizing"
	StageAcknowledged Stage = "acknowledged"
	StageFetching     Stage = "fetching"
	StageExtracting   Stage = "extracting"
	StageValidating   Stage = "validating"
	StageStoring      Stage = "storing"
	StagePersisting   Stage = "persisting"
	StageConfirmed    Stage = "confirmed"
	StageFailed       Stage = "failed"
)

// Attachment is the file part of an inbound chat message.
type Attachment struct {
	FileID   string
	MIMEType string
	FileName string
}

// Extension returns the file extension used for the stored artifact: pdf for
// PDFs, otherwise the MIME subtype (jpeg is written as jpg).
func (a Attachment) Extension() string {
	if a.MIMEType == "application/pdf" {
		return "pdf"
	}
	_, sub, ok := strings.Cut(a.MIMEType, "/")
	if !ok || sub == "" {
		return "bin"
	}
	if sub == "jpeg" {
		return "jpg"
	}
	return sub
}

// Submission is one receipt sent to the bot.
type Submission struct {
	JobID      string
	ChatID     int64
	SenderID   int64
	Attachment Attachment
}

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Submission Submission
	Stage      Stage

	Data       []byte
	Extraction *Extraction
	Normalized domain.NormalizedTransaction
	Receipt    domain.ReceiptRef
	Owner      *domain.User
	Route      domain.Route

	Transaction domain.Transaction
}

// AuthorizeStep checks the sender against the allow-list. An empty list lets
// everyone through.
type AuthorizeStep struct {
	allowed map[string]struct{}
}

// NewAuthorizeStep builds the allow-list from Telegram user ids.
func NewAuthorizeStep(allowedUsers []string) *AuthorizeStep {
	allowed := make(map[string]struct{}, len(allowedUsers))
	for _, id := range allowedUsers {
		if id = strings.TrimSpace(id); id != "" {
			allowed[id] = struct{}{}
		}
	}
	return &AuthorizeStep{allowed: allowed}
}

// Allowed reports whether the sender may use the bot.
func (s *AuthorizeStep) Allowed(senderID int64) bool {
	if len(s.allowed) == 0 {
		return true
	}
	_, ok := s.allowed[strconv.FormatInt(senderID, 10)]
	return ok
}

func (s *AuthorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Stage = StageAuthorizing
	if !s.Allowed(state.Submission.SenderID) {
		return fmt.Errorf("AuthorizeStep: sender %d: %w", state.Submission.SenderID, ErrAuthorizationDenied)
	}
	return nil
}

// AcknowledgeStep tells the sender work has started, before any slow I/O.
type AcknowledgeStep struct {
	transport ChatTransport
}

func (s *AcknowledgeStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Stage = StageAcknowledged
	if err := s.transport.SendText(ctx, state.Submission.ChatID, MsgAcknowledge); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to send acknowledgement")
	}
	return nil
}

// FetchStep rejects unsupported attachments and downloads the rest.
type FetchStep struct {
	transport ChatTransport
}

func (s *FetchStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Stage = StageFetching

	att := state.Submission.Attachment
	if !SupportedMIME(att.MIMEType) {
		return fmt.Errorf("FetchStep: mime type %q: %w", att.MIMEType, ErrUnsupportedAttachment)
	}

	data, err := s.transport.DownloadFile(ctx, att.FileID)
	if err != nil {
		return fmt.Errorf("FetchStep: download %s: %w: %w", att.FileID, ErrFetchFailed, err)
	}
	state.Data = data
	return nil
}

// SupportedMIME reports whether the attachment can be a receipt.
func SupportedMIME(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}

// ExtractStep runs the vision model and drops unreadable receipts before
// anything is stored.
type ExtractStep struct {
	extractor VisionExtractor
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Stage = StageExtracting

	extraction, err := s.extractor.Extract(ctx, state.Data, state.Submission.Attachment.MIMEType)
	if err != nil {
		if errors.Is(err, ErrExtractionFailed) {
			return fmt.Errorf("ExtractStep: %w", err)
		}
		return fmt.Errorf("ExtractStep: %w: %w", ErrExtractionFailed, err)
	}
	if extraction == nil || !IsReadable(extraction.Receipt) {
		return fmt.Errorf("ExtractStep: %w", ErrUnreadableReceipt)
	}
	state.Extraction = extraction
	return nil
}

// ValidateStep normalizes the extraction.
type ValidateStep struct{}

func (s *ValidateStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Stage = StageValidating
	state.Normalized = Normalize(state.Extraction.Receipt)
	return nil
}

// StoreStep writes the receipt artifact under a fresh logical name.
type StoreStep struct {
	store BlobStore
	now   func() time.Time
}

func (s *StoreStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Stage = StageStoring

	att := state.Submission.Attachment
	ext := att.Extension()
	name := blobstore.NewObjectName(s.now(), ext)

	obj, err := s.store.Store(ctx, state.Data, name, att.MIMEType)
	if err != nil {
		return fmt.Errorf("StoreStep: store %s: %w: %w", name, ErrStorageFailure, err)
	}
	state.Receipt = domain.ReceiptRef{Path: obj.URL, Type: ext, StorageID: obj.StorageID}
	return nil
}

// PersistStep resolves the owner, classifies and writes one row. A stored blob
// is not removed when this fails.
type PersistStep struct {
	gateway TransactionGateway
}

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Stage = StagePersisting

	owner, err := s.gateway.ResolveOwner(ctx, strconv.FormatInt(state.Submission.SenderID, 10))
	if err != nil {
		if errors.Is(err, domain.ErrNoSystemUser) {
			return fmt.Errorf("PersistStep: resolve owner: %w", err)
		}
		return fmt.Errorf("PersistStep: resolve owner: %w: %w", ErrPersistenceFailure, err)
	}
	state.Owner = owner

	state.Route = Classify(state.Normalized)

	tx, err := s.gateway.Save(ctx, state.Route, state.Receipt, owner.ID, state.Extraction.RawText)
	if err != nil {
		return fmt.Errorf("PersistStep: save %s: %w: %w", state.Route.Target, ErrPersistenceFailure, err)
	}
	state.Transaction = tx
	return nil
}

// ConfirmStep sends the summary of the saved record. The record stays even if
// the reply cannot be delivered.
type ConfirmStep struct {
	transport ChatTransport
}

func (s *ConfirmStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Stage = StageConfirmed
	if err := s.transport.SendText(ctx, state.Submission.ChatID, ConfirmationMessage(state.Transaction)); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to send confirmation")
	}
	return nil
}
