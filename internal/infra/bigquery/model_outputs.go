package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// ModelOutputRow is one archived vision model answer.
type ModelOutputRow struct {
	OutputID string `bigquery:"output_id"` // REQUIRED
	JobID    string `bigquery:"job_id"`    // REQUIRED, ingestion session id
	ChatID   int64  `bigquery:"chat_id"`   // REQUIRED

	ModelName string `bigquery:"model_name"` // REQUIRED

	RawText bigquery.NullString `bigquery:"raw_text"` // NULLABLE, model text as returned
	RawJSON bigquery.NullJSON   `bigquery:"raw_json"` // NULLABLE, decoded receipt object

	Direction     bigquery.NullString `bigquery:"direction"`      // NULLABLE
	TransactionID bigquery.NullString `bigquery:"transaction_id"` // NULLABLE, persisted expense/income id

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
