package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
)

// RunMigrations applies every .sql file in migrations that is not yet
// recorded in schema_migrations, in lexical order, one transaction each.
func (db *DB) RunMigrations(ctx context.Context, migrations fs.FS) error {
	logger := slog.With("component", "migrations")
	logger.Info("Starting database migrations")

	if err := db.createMigrationsTable(ctx); err != nil {
		logger.Error("Failed to create migrations table", "error", err)
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := migrationFiles(migrations)
	if err != nil {
		logger.Error("Failed to get migration files", "error", err)
		return fmt.Errorf("failed to get migration files: %w", err)
	}

	logger.Info("Found migration files", "count", len(files))

	for _, file := range files {
		if err := db.runMigration(ctx, migrations, file); err != nil {
			logger.Error("Failed to run migration", "migration", file, "error", err)
			return fmt.Errorf("failed to run migration %s: %w", file, err)
		}
	}

	logger.Info("All migrations completed successfully")
	return nil
}

func (db *DB) createMigrationsTable(ctx context.Context) error {
	logger := slog.With("component", "migrations", "operation", "create_table")
	logger.Debug("Creating schema_migrations table if not exists")

	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT NOW()
	)`

	_, err := db.ExecContext(ctx, query)
	if err != nil {
		logger.Error("Failed to create schema_migrations table", "error", err)
	} else {
		logger.Debug("schema_migrations table ready")
	}
	return err
}

func migrationFiles(migrations fs.FS) ([]string, error) {
	logger := slog.With("component", "migrations", "operation", "scan_files")

	var files []string
	err := fs.WalkDir(migrations, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Error accessing migration file", "path", p, "error", err)
			return err
		}

		if !d.IsDir() && strings.HasSuffix(p, ".sql") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	logger.Debug("Migration files collected", "count", len(files), "files", files)
	return files, nil
}

func (db *DB) runMigration(ctx context.Context, migrations fs.FS, file string) error {
	migrationName := path.Base(file)
	logger := slog.With(
		"component", "migrations",
		"operation", "run_migration",
		"migration", migrationName,
	)

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", migrationName).Scan(&exists)
	if err != nil {
		logger.Error("Failed to check migration status", "error", err)
		return err
	}

	if exists {
		logger.Debug("Migration already applied, skipping")
		return nil
	}

	content, err := fs.ReadFile(migrations, file)
	if err != nil {
		logger.Error("Failed to read migration file", "error", err)
		return err
	}

	logger.Info("Running migration", "size_bytes", len(content))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("Failed to begin transaction", "error", err)
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		logger.Error("Failed to execute migration SQL", "error", err)
		return err
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", migrationName); err != nil {
		logger.Error("Failed to record migration", "error", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit migration transaction", "error", err)
		return err
	}

	logger.Info("Migration completed successfully")
	return nil
}
