package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/infra/postgres"
	"github.com/jackc/pgx/v5"
)

// PostgresMigrator applies migrations/postgres. Each migration and its
// schema_migrations row commit in one transaction.
type PostgresMigrator struct {
	pool txBeginner
}

// txBeginner is satisfied by *pgxpool.Pool and pgxmock pools.
type txBeginner interface {
	postgres.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

func NewPostgresMigrator(ctx context.Context, dsn string) (*PostgresMigrator, error) {
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresMigrator: %w", err)
	}
	return &PostgresMigrator{pool: pool}, nil
}

func (m *PostgresMigrator) Close() { m.pool.Close() }

func (m *PostgresMigrator) EnsureSchemaMigrationsTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			name        TEXT NOT NULL,
			applied_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			checksum    TEXT,
			applied_by  TEXT
		)`)
	if err != nil {
		return fmt.Errorf("EnsureSchemaMigrationsTable: %w", err)
	}
	return nil
}

func (m *PostgresMigrator) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := m.pool.Query(ctx, `
		SELECT version::bigint, name, applied_at, COALESCE(checksum, ''), COALESCE(applied_by, '')
		FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("AppliedMigrations: querying: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			version   int64
			am        AppliedMigration
			appliedAt time.Time
		)
		if err := rows.Scan(&version, &am.Name, &appliedAt, &am.Checksum, &am.AppliedBy); err != nil {
			return nil, fmt.Errorf("AppliedMigrations: scanning: %w", err)
		}
		am.Version = int(version)
		am.AppliedAt = appliedAt
		applied = append(applied, am)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("AppliedMigrations: iterating: %w", err)
	}
	return applied, nil
}

func (m *PostgresMigrator) Apply(ctx context.Context, mig Migration, appliedBy string) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("Apply: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		return fmt.Errorf("Apply: executing: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name, checksum, applied_by) VALUES ($1, $2, $3, $4)`,
		mig.Version, mig.Name, mig.Checksum, appliedBy,
	); err != nil {
		return fmt.Errorf("Apply: recording: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("Apply: committing: %w", err)
	}
	return nil
}
