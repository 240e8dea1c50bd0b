package jobs

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeIngestUpdate is one inbound chat update.
	JobTypeIngestUpdate JobType = "ingest_update"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed. Jobs are never retried.
	JobStatusFailed JobStatus = "failed"
)

// IngestUpdateJob carries one chat update through the queue and records what
// became of it.
type IngestUpdateJob struct {
	// JobID is the unique identifier for this job. It doubles as the ingestion session id.
	JobID string `json:"job_id"`

	// Update is the update as received from Telegram.
	Update tgbotapi.Update `json:"-"`

	// UpdateID, ChatID and SenderID are copied from Update for filtering.
	UpdateID int   `json:"update_id"`
	ChatID   int64 `json:"chat_id"`
	SenderID int64 `json:"sender_id"`

	// Source is "webhook" or "polling".
	Source string `json:"source"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// Stage is the last ingestion stage reached, empty for non-receipt updates.
	Stage string `json:"stage,omitempty"`

	// TransactionID is the persisted expense or income id.
	TransactionID string `json:"transaction_id,omitempty"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`
}

// NewIngestUpdateJob wraps an update, copying its routing fields.
func NewIngestUpdateJob(update tgbotapi.Update, source string) *IngestUpdateJob {
	job := &IngestUpdateJob{Update: update, UpdateID: update.UpdateID, Source: source}
	if chat := update.FromChat(); chat != nil {
		job.ChatID = chat.ID
	}
	if user := update.SentFrom(); user != nil {
		job.SenderID = user.ID
	}
	return job
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *IngestUpdateJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *IngestUpdateJob) GetType() JobType {
	return JobTypeIngestUpdate
}

// GetStatus implements the Job interface.
func (j *IngestUpdateJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishIngestUpdate publishes one chat update for processing.
	PublishIngestUpdate(ctx context.Context, job *IngestUpdateJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. It may record Stage and TransactionID on the job;
// a returned error marks the job failed.
type JobHandler func(ctx context.Context, job *IngestUpdateJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *IngestUpdateJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*IngestUpdateJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*IngestUpdateJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// ChatID filters jobs by chat.
	ChatID int64

	// Status filters jobs by status.
	Status JobStatus

	// Stage filters jobs by the last ingestion stage reached, e.g. "extracting".
	Stage string

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// ErrJobNotFound is returned by JobStore.GetJob for unknown ids.
var ErrJobNotFound = errors.New("job not found")
