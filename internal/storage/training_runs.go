package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/cropcast/internal/model"
)

// SaveTrainingRun logs a completed training run.
func (s *SQLiteStorage) SaveTrainingRun(ctx context.Context, r *model.TrainingReport) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTrainingRun(r); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO training_runs (run_id, source, sample_count, mae, mse, r2, cv_r2_mean, cv_r2_std, trained_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, string(r.Source), r.SampleCount, r.MAE, r.MSE, r.R2, r.CVR2Mean, r.CVR2Std, r.TrainedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save training run: %w", err)
	}
	return nil
}

// RecentTrainingRuns returns up to limit runs, newest first.
func (s *SQLiteStorage) RecentTrainingRuns(ctx context.Context, limit int) ([]model.TrainingReport, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source, sample_count, mae, mse, r2, cv_r2_mean, cv_r2_std, trained_at
		FROM training_runs
		ORDER BY trained_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.TrainingReport
	for rows.Next() {
		var (
			r      model.TrainingReport
			source string
		)
		if err := rows.Scan(&r.RunID, &source, &r.SampleCount, &r.MAE, &r.MSE, &r.R2,
			&r.CVR2Mean, &r.CVR2Std, &r.TrainedAt); err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}
		r.Source = model.SourceKind(source)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate training runs: %w", err)
	}
	return out, nil
}
