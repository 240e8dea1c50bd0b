package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/config"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
	"github.com/rs/zerolog"
)

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Migrator applies migrations to one kind of database.
type Migrator interface {
	EnsureSchemaMigrationsTable(ctx context.Context) error
	AppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
	// Apply runs the migration and records it in schema_migrations.
	Apply(ctx context.Context, m Migration, appliedBy string) error
	Close()
}

var (
	target        = flag.String("target", "postgres", "Migration target: postgres or bigquery")
	projectID     = flag.String("project", "", "GCP project ID (bigquery target)")
	datasetID     = flag.String("dataset", "", "BigQuery dataset ID (defaults to BIGQUERY_DATASET)")
	dsn           = flag.String("dsn", "", "Postgres connection string (defaults to DATABASE_URL / DB_*)")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "", "Path to migrations directory (defaults to migrations/<target>)")
)

func main() {
	flag.Parse()
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()

	migrator, replacements, err := openMigrator(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("target", *target).Msg("failed to connect")
	}
	defer migrator.Close()

	dir := *migrationsDir
	if dir == "" {
		dir = "migrations/" + *target
	}

	applied, err := run(ctx, migrator, dir, replacements, *appliedBy, log)
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	if applied == 0 {
		log.Info().Msg("no new migrations to apply, database is up to date")
	} else {
		log.Info().Int("applied", applied).Msg("migrations applied")
	}
}

func openMigrator(ctx context.Context, cfg *config.Config) (Migrator, map[string]string, error) {
	switch *target {
	case "postgres":
		conn := *dsn
		if conn == "" {
			conn = cfg.Database.DSN()
		}
		m, err := NewPostgresMigrator(ctx, conn)
		return m, nil, err

	case "bigquery":
		project := *projectID
		if project == "" {
			project = cfg.BigQuery.Project
		}
		if project == "" {
			return nil, nil, fmt.Errorf("-project flag or BIGQUERY_PROJECT is required for the bigquery target")
		}
		dataset := *datasetID
		if dataset == "" {
			dataset = cfg.BigQuery.Dataset
		}
		m, err := NewBigQueryMigrator(ctx, project, dataset)
		return m, map[string]string{"{{PROJECT_ID}}": project, "{{DATASET_ID}}": dataset}, err

	default:
		return nil, nil, fmt.Errorf("unknown target %q", *target)
	}
}

// run applies every pending migration in version order and returns how many it applied.
func run(ctx context.Context, migrator Migrator, dir string, replacements map[string]string, by string, log zerolog.Logger) (int, error) {
	if err := migrator.EnsureSchemaMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("ensuring schema_migrations table: %w", err)
	}

	migrations, err := readMigrations(resolveDir(dir), replacements)
	if err != nil {
		return 0, fmt.Errorf("reading migrations: %w", err)
	}
	log.Info().Int("count", len(migrations)).Str("dir", dir).Msg("found migration files")

	appliedMigrations, err := migrator.AppliedMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting applied migrations: %w", err)
	}

	appliedByVersion := make(map[int]AppliedMigration, len(appliedMigrations))
	for _, am := range appliedMigrations {
		appliedByVersion[am.Version] = am
	}

	count := 0
	for _, m := range migrations {
		if am, ok := appliedByVersion[m.Version]; ok {
			if am.Checksum != "" && am.Checksum != m.Checksum {
				log.Warn().Str("migration", m.Filename).Msg("applied migration was modified after it ran")
			}
			log.Debug().Str("migration", m.Filename).Msg("skip, already applied")
			continue
		}

		log.Info().Str("migration", m.Filename).Msg("applying")
		if err := migrator.Apply(ctx, m, by); err != nil {
			return count, fmt.Errorf("applying %s: %w", m.Filename, err)
		}
		count++
	}

	return count, nil
}

// resolveDir also looks two levels up, for runs from inside cmd/migrate.
func resolveDir(dir string) string {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if _, err := os.Stat("../../" + dir); err == nil {
			return "../../" + dir
		}
	}
	return dir
}
