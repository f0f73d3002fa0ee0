package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// The predictions table keeps the column names of the upstream application's
// table so the database source can read this file directly.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial prediction history schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS predictions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					cropType TEXT,
					region TEXT,
					soilType TEXT,
					temperature REAL,
					rainfall REAL,
					humidity REAL,
					area REAL,
					predictedYield REAL,
					createdAt DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(createdAt)`,
			}
			return execAll(tx, queries)
		},
	},
	{
		Version:     2,
		Description: "Record soil measurements and model run with predictions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE predictions ADD COLUMN soilPh REAL`,
				`ALTER TABLE predictions ADD COLUMN nitrogen REAL`,
				`ALTER TABLE predictions ADD COLUMN phosphorus REAL`,
				`ALTER TABLE predictions ADD COLUMN potassium REAL`,
				`ALTER TABLE predictions ADD COLUMN organicMatter REAL`,
				`ALTER TABLE predictions ADD COLUMN modelRunId TEXT`,
			}
			return execAll(tx, queries)
		},
	},
	{
		Version:     3,
		Description: "Add training run log",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS training_runs (
					run_id TEXT PRIMARY KEY,
					source TEXT NOT NULL,
					sample_count INTEGER NOT NULL,
					mae REAL NOT NULL,
					mse REAL NOT NULL,
					r2 REAL NOT NULL,
					cv_r2_mean REAL NOT NULL,
					cv_r2_std REAL NOT NULL,
					trained_at DATETIME NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_training_runs_trained_at ON training_runs(trained_at)`,
			}
			return execAll(tx, queries)
		},
	},
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// SchemaVersion returns the current PRAGMA user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies every pending migration, each in its own transaction.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
