package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
	infra "github.com/dvloznov/kitchen-ledger/internal/infra/bigquery"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
)

// Pipeline runs steps in order and stops at the first error.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a pipeline from the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs every step against state.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for _, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline stage %s failed: %w", state.Stage, err)
		}
	}
	return nil
}

// Options wires an Ingestor. Extractor, Store, Gateway and Transport are
// required; Archive and Mirror are optional sinks.
type Options struct {
	AllowedUsers []string

	Extractor VisionExtractor
	Store     BlobStore
	Gateway   TransactionGateway
	Transport ChatTransport

	Archive ModelOutputArchive
	Mirror  TransactionMirror

	SessionTimeout time.Duration
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Ingestor turns receipt submissions into persisted transactions. It is safe
// for concurrent use; each call is an independent session.
type Ingestor struct {
	pipeline       *Pipeline
	transport      ChatTransport
	archive        ModelOutputArchive
	mirror         TransactionMirror
	sessionTimeout time.Duration
	log            zerolog.Logger
	now            func() time.Time
}

// NewIngestor creates an Ingestor with the standard stage order.
func NewIngestor(opts Options) *Ingestor {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.SessionTimeout
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}

	return &Ingestor{
		pipeline: NewPipeline(
			NewAuthorizeStep(opts.AllowedUsers),
			&AcknowledgeStep{transport: opts.Transport},
			&FetchStep{transport: opts.Transport},
			&ExtractStep{extractor: opts.Extractor},
			&ValidateStep{},
			&StoreStep{store: opts.Store, now: now},
			&PersistStep{gateway: opts.Gateway},
			&ConfirmStep{transport: opts.Transport},
		),
		transport:      opts.Transport,
		archive:        opts.Archive,
		mirror:         opts.Mirror,
		sessionTimeout: timeout,
		log:            opts.Logger,
		now:            now,
	}
}

// Result is the outcome of one session.
type Result struct {
	JobID       string
	Stage       Stage // StageConfirmed or StageFailed
	FailedStage Stage // stage that failed, empty on success
	Transaction domain.Transaction
}

// Ingest runs one session. Once started it is not cancelled by ctx; it is
// bounded by the session timeout instead. Every failure is reported to the
// sender and logged; the returned error carries the failure kind.
func (in *Ingestor) Ingest(ctx context.Context, sub Submission) (*Result, error) {
	if sub.JobID == "" {
		sub.JobID = uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), in.sessionTimeout)
	defer cancel()

	log := logger.ForSession(in.log, sub.JobID, sub.ChatID, sub.SenderID)
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("mime_type", sub.Attachment.MIMEType).
		Msg("Receipt received")

	state := &PipelineState{Submission: sub, Stage: StageReceived}
	if err := in.pipeline.Execute(ctx, state); err != nil {
		in.fail(ctx, log, state, err)
		return &Result{JobID: sub.JobID, Stage: StageFailed, FailedStage: state.Stage}, err
	}

	tx := state.Transaction
	log.Info().
		Str("stage", string(state.Stage)).
		Str("direction", string(tx.Kind())).
		Str("transaction_id", tx.Base().ID).
		Str("category", tx.Base().Category).
		Msg("Receipt ingested")

	in.archiveOutput(ctx, log, state)
	in.mirrorTransaction(ctx, log, tx)

	return &Result{JobID: sub.JobID, Stage: StageConfirmed, Transaction: tx}, nil
}

func (in *Ingestor) fail(ctx context.Context, log zerolog.Logger, state *PipelineState, err error) {
	failedAt := state.Stage
	state.Stage = StageFailed

	switch {
	case errors.Is(err, domain.ErrNoSystemUser):
		log.Error().Err(err).Str("stage", string(failedAt)).Str("alert", "operator").Msg("No system user to own receipts")
	case errors.Is(err, ErrAuthorizationDenied),
		errors.Is(err, ErrUnsupportedAttachment),
		errors.Is(err, ErrUnreadableReceipt):
		log.Warn().Err(err).Str("stage", string(failedAt)).Msg("Receipt rejected")
	default:
		log.Error().Err(err).Str("stage", string(failedAt)).Msg("Receipt ingestion failed")
	}

	if sendErr := in.transport.SendText(ctx, state.Submission.ChatID, UserMessage(err)); sendErr != nil {
		log.Warn().Err(sendErr).Msg("Failed to send error reply")
	}
}

// archiveOutput keeps the raw model answer. Failures are only logged.
func (in *Ingestor) archiveOutput(ctx context.Context, log zerolog.Logger, state *PipelineState) {
	if in.archive == nil || state.Extraction == nil {
		return
	}

	row := &infra.ModelOutputRow{
		OutputID:      uuid.New().String(),
		JobID:         state.Submission.JobID,
		ChatID:        state.Submission.ChatID,
		ModelName:     state.Extraction.ModelName,
		RawText:       bigquery.NullString{StringVal: state.Extraction.RawText, Valid: state.Extraction.RawText != ""},
		Direction:     bigquery.NullString{StringVal: string(state.Route.Target), Valid: state.Route.Target != ""},
		TransactionID: bigquery.NullString{StringVal: state.Transaction.Base().ID, Valid: true},
		CreatedTS:     in.now().UTC(),
	}
	if b, err := json.Marshal(state.Extraction.Receipt); err == nil {
		row.RawJSON = bigquery.NullJSON{JSONVal: string(b), Valid: true}
	}

	if err := in.archive.InsertModelOutput(ctx, row); err != nil {
		log.Warn().Err(err).Msg("Failed to archive model output")
	}
}

func (in *Ingestor) mirrorTransaction(ctx context.Context, log zerolog.Logger, tx domain.Transaction) {
	if in.mirror == nil {
		return
	}
	if err := in.mirror.MirrorTransaction(ctx, tx); err != nil {
		log.Warn().Err(err).Msg("Failed to mirror transaction")
	}
}
