package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// BigQueryMigrator applies migrations/bigquery to one dataset.
type BigQueryMigrator struct {
	client  *bigquery.Client
	project string
	dataset string
}

func NewBigQueryMigrator(ctx context.Context, project, dataset string) (*BigQueryMigrator, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryMigrator: creating client: %w", err)
	}
	return &BigQueryMigrator{client: client, project: project, dataset: dataset}, nil
}

func (m *BigQueryMigrator) Close() { m.client.Close() }

func (m *BigQueryMigrator) table() string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", m.project, m.dataset)
}

func (m *BigQueryMigrator) EnsureSchemaMigrationsTable(ctx context.Context) error {
	sql := `
		CREATE TABLE IF NOT EXISTS ` + m.table() + ` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)`
	return m.runQuery(ctx, m.client.Query(sql))
}

func (m *BigQueryMigrator) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	sql := `SELECT version, name, applied_at, checksum, applied_by FROM ` + m.table() + ` ORDER BY version ASC`

	it, err := m.client.Query(sql).Read(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "Not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}
		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

// Apply runs the migration then records it. BigQuery DDL is not transactional,
// so a failure between the two leaves the migration applied but unrecorded.
func (m *BigQueryMigrator) Apply(ctx context.Context, mig Migration, appliedBy string) error {
	if err := m.runQuery(ctx, m.client.Query(mig.SQL)); err != nil {
		return fmt.Errorf("executing: %w", err)
	}

	q := m.client.Query(`
		INSERT INTO ` + m.table() + `
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: mig.Version},
		{Name: "name", Value: mig.Name},
		{Name: "checksum", Value: mig.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	if err := m.runQuery(ctx, q); err != nil {
		return fmt.Errorf("recording: %w", err)
	}
	return nil
}

func (m *BigQueryMigrator) runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
