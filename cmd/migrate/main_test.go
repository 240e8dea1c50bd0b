package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		name     string
	}{
		{"0001_init_schema_migrations.sql", true, "init_schema_migrations"},
		{"001_invalid.sql", false, ""},
		{"0001_test", false, ""},
		{"0001.sql", false, ""},
		{"invalid_0001_test.sql", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := migrationPattern.FindStringSubmatch(tt.filename)
			if !tt.valid {
				assert.Nil(t, matches)
				return
			}
			require.NotNil(t, matches)
			assert.Equal(t, tt.name, matches[2])
		})
	}
}

func TestReadMigrations(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"0002_second.sql": "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (id INT64);",
		"0001_first.sql":  "CREATE TABLE a (id INT);",
		"README.md":       "notes",
	})

	migrations, err := readMigrations(dir, map[string]string{"{{PROJECT_ID}}": "p", "{{DATASET_ID}}": "d"})
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Equal(t, "CREATE TABLE `p.d.b` (id INT64);", migrations[1].SQL)
	assert.Len(t, migrations[1].Checksum, 64)
}

func TestReadMigrations_ChecksumIgnoresReplacements(t *testing.T) {
	dir := writeFiles(t, map[string]string{"0001_a.sql": "SELECT '{{PROJECT_ID}}';"})

	a, err := readMigrations(dir, map[string]string{"{{PROJECT_ID}}": "one"})
	require.NoError(t, err)
	b, err := readMigrations(dir, map[string]string{"{{PROJECT_ID}}": "two"})
	require.NoError(t, err)

	assert.NotEqual(t, a[0].SQL, b[0].SQL)
	assert.Equal(t, a[0].Checksum, b[0].Checksum)
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"0001_a.sql": "SELECT 1;",
		"0001_b.sql": "SELECT 2;",
	})
	_, err := readMigrations(dir, nil)
	assert.ErrorContains(t, err, "duplicate migration version 0001")
}

type fakeMigrator struct {
	applied  []AppliedMigration
	ran      []string
	applyErr error
}

func (f *fakeMigrator) EnsureSchemaMigrationsTable(context.Context) error { return nil }
func (f *fakeMigrator) AppliedMigrations(context.Context) ([]AppliedMigration, error) {
	return f.applied, nil
}
func (f *fakeMigrator) Apply(_ context.Context, m Migration, _ string) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.ran = append(f.ran, m.Filename)
	return nil
}
func (f *fakeMigrator) Close() {}

func TestRun_AppliesOnlyPending(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"0001_users.sql":    "CREATE TABLE users ();",
		"0002_expenses.sql": "CREATE TABLE expenses ();",
	})
	m := &fakeMigrator{applied: []AppliedMigration{{Version: 1, Name: "users"}}}

	n, err := run(context.Background(), m, dir, nil, "test", zerolog.New(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"0002_expenses.sql"}, m.ran)
}

func TestRun_StopsOnFailure(t *testing.T) {
	dir := writeFiles(t, map[string]string{"0001_users.sql": "CREATE TABLE users ();"})
	m := &fakeMigrator{applyErr: errors.New("syntax error")}

	n, err := run(context.Background(), m, dir, nil, "test", zerolog.New(io.Discard))
	assert.Equal(t, 0, n)
	assert.ErrorContains(t, err, "0001_users.sql")
}

func TestPostgresMigrator_Apply(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mig := Migration{Version: 1, Name: "users", SQL: "CREATE TABLE users ()", Checksum: "abc"}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE users").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs(1, "users", "abc", "test").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	m := &PostgresMigrator{pool: mock}
	require.NoError(t, m.Apply(context.Background(), mig, "test"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrator_ApplyRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE users").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	m := &PostgresMigrator{pool: mock}
	err = m.Apply(context.Background(), Migration{Version: 1, Name: "users", SQL: "CREATE TABLE users ()"}, "test")
	assert.ErrorContains(t, err, "executing")
	assert.NoError(t, mock.ExpectationsWereMet())
}
