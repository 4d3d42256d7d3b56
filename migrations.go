package feedkit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

// MigrationFiles contains all SQL migration files embedded in the binary.
// Users can access these files programmatically to apply migrations using
// their preferred migration tool (goose, golang-migrate, atlas, etc.)
// or call ApplyMigrations for the built-in runner.
//
// Example with goose:
//
//	goose.SetBaseFS(feedkit.MigrationFiles)
//	if err := goose.Up(db, "migrations"); err != nil {
//	    log.Fatal(err)
//	}
//
//go:embed migrations/*.sql
var MigrationFiles embed.FS

const migrationsTable = "feedkit_schema_migrations"

// Migration is a single numbered SQL file.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations returns the embedded migrations ordered by version.
// File names must start with a numeric version followed by an underscore.
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(MigrationFiles, "migrations")
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to read migrations", err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("migration %s has no version prefix", name))
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, fmt.Sprintf("migration %s has an invalid version", name), err)
		}
		body, err := fs.ReadFile(MigrationFiles, "migrations/"+name)
		if err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, fmt.Sprintf("failed to read migration %s", name), err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(body)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// ApplyMigrations applies every embedded migration not yet recorded in the
// feedkit_schema_migrations table. Each migration runs in its own transaction.
//
// Works with MySQL, PostgreSQL and SQLite; statements avoid dialect specific syntax.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return NewError(ErrCodeConfiguration, "database is required")
	}

	create := "CREATE TABLE IF NOT EXISTS " + migrationsTable + " (version BIGINT NOT NULL PRIMARY KEY)"
	if _, err := db.ExecContext(ctx, create); err != nil {
		return NewErrorWithCause(ErrCodeStorage, "failed to create migrations table", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	migrations, err := Migrations()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM "+migrationsTable)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeStorage, "failed to read applied migrations", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, NewErrorWithCause(ErrCodeStorage, "failed to scan migration version", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, NewErrorWithCause(ErrCodeStorage, "failed to read applied migrations", err)
	}
	return applied, nil
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return NewErrorWithCause(ErrCodeStorage, "failed to begin migration", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return NewErrorWithCause(ErrCodeStorage, fmt.Sprintf("migration %s failed", m.Name), err)
		}
	}

	// Version is an int from the file name, so formatting it inline is safe for every dialect.
	record := fmt.Sprintf("INSERT INTO %s (version) VALUES (%d)", migrationsTable, m.Version)
	if _, err := tx.ExecContext(ctx, record); err != nil {
		return NewErrorWithCause(ErrCodeStorage, fmt.Sprintf("failed to record migration %s", m.Name), err)
	}

	if err := tx.Commit(); err != nil {
		return NewErrorWithCause(ErrCodeStorage, fmt.Sprintf("failed to commit migration %s", m.Name), err)
	}
	return nil
}

func splitStatements(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
