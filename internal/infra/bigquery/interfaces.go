package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// DefaultDataset holds the model_outputs table unless configured otherwise.
const DefaultDataset = "kitchen_ledger"

// ModelOutputRepository archives raw model answers. It holds a shared BigQuery
// client to avoid creating a new connection for each operation.
type ModelOutputRepository struct {
	client  *bigquery.Client
	dataset string
}

// NewModelOutputRepository creates a repository with its own client.
func NewModelOutputRepository(ctx context.Context, projectID, dataset string) (*ModelOutputRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewModelOutputRepository: creating client: %w", err)
	}
	if dataset == "" {
		dataset = DefaultDataset
	}
	return &ModelOutputRepository{client: client, dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (r *ModelOutputRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertModelOutput delegates to InsertModelOutputWithClient with the shared client.
func (r *ModelOutputRepository) InsertModelOutput(ctx context.Context, row *ModelOutputRow) error {
	return InsertModelOutputWithClient(ctx, r.client, r.dataset, row)
}

// ListModelOutputs delegates to ListModelOutputsWithClient with the shared client.
func (r *ModelOutputRepository) ListModelOutputs(ctx context.Context, limit int) ([]*ModelOutputRow, error) {
	return ListModelOutputsWithClient(ctx, r.client, r.dataset, limit)
}
