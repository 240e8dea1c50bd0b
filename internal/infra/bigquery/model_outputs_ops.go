package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const modelOutputsTable = "model_outputs"

// InsertModelOutputWithClient inserts a single ModelOutputRow using the provided
// BigQuery client. Uses DML INSERT to avoid streaming buffer issues.
func InsertModelOutputWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *ModelOutputRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.%s`"+` (
			output_id, job_id, chat_id, model_name,
			raw_text, raw_json, direction, transaction_id, created_ts
		)
		VALUES (
			@output_id, @job_id, @chat_id, @model_name,
			@raw_text, @raw_json, @direction, @transaction_id, @created_ts
		)
	`, client.Project(), dataset, modelOutputsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "job_id", Value: row.JobID},
		{Name: "chat_id", Value: row.ChatID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "raw_text", Value: row.RawText},
		{Name: "raw_json", Value: row.RawJSON},
		{Name: "direction", Value: row.Direction},
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertModelOutput: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertModelOutput: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertModelOutput: job error: %w", err)
	}

	return nil
}

// ListModelOutputsWithClient returns the newest archived outputs first.
func ListModelOutputsWithClient(ctx context.Context, client *bigquery.Client, dataset string, limit int) ([]*ModelOutputRow, error) {
	if limit <= 0 {
		limit = 20
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			output_id,
			job_id,
			chat_id,
			model_name,
			raw_text,
			raw_json,
			direction,
			transaction_id,
			created_ts
		FROM `+"`%s.%s.%s`"+`
		ORDER BY created_ts DESC
		LIMIT @limit
	`, client.Project(), dataset, modelOutputsTable))
	q.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: limit}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListModelOutputsWithClient: reading query: %w", err)
	}

	var rows []*ModelOutputRow
	for {
		var row ModelOutputRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListModelOutputsWithClient: iterating results: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}
