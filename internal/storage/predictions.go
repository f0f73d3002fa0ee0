package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/cropcast/internal/model"
)

// SavePrediction records one answered prediction and sets p.ID.
func (s *SQLiteStorage) SavePrediction(ctx context.Context, p *model.Prediction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePrediction(p); err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (
			cropType, region, soilType, temperature, rainfall, humidity, area,
			soilPh, nitrogen, phosphorus, potassium, organicMatter,
			predictedYield, modelRunId, createdAt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(p.CropType), nullString(p.Region), nullString(p.SoilType),
		nullFloat(p.Temperature), nullFloat(p.Rainfall), nullFloat(p.Humidity), nullFloat(p.Area),
		nullFloat(p.SoilPH), nullFloat(p.Nitrogen), nullFloat(p.Phosphorus),
		nullFloat(p.Potassium), nullFloat(p.OrganicMatter),
		p.PredictedYield, nullString(p.ModelRunID), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get prediction id: %w", err)
	}
	p.ID = id
	return nil
}

// CountPredictions returns the number of recorded predictions.
func (s *SQLiteStorage) CountPredictions(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count predictions: %w", err)
	}
	return n, nil
}

// RecentPredictions returns up to limit predictions, newest first.
func (s *SQLiteStorage) RecentPredictions(ctx context.Context, limit int) ([]model.Prediction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cropType, region, soilType, temperature, rainfall, humidity, area,
			soilPh, nitrogen, phosphorus, potassium, organicMatter,
			predictedYield, modelRunId, createdAt
		FROM predictions
		ORDER BY createdAt DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Prediction
	for rows.Next() {
		var (
			p                         model.Prediction
			crop, region, soil, runID sql.NullString
			temp, rain, hum, area     sql.NullFloat64
			ph, n, phos, k, om        sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &crop, &region, &soil, &temp, &rain, &hum, &area,
			&ph, &n, &phos, &k, &om, &p.PredictedYield, &runID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		p.CropType, p.Region, p.SoilType, p.ModelRunID = crop.String, region.String, soil.String, runID.String
		p.Temperature, p.Rainfall, p.Humidity, p.Area = floatOrNaN(temp), floatOrNaN(rain), floatOrNaN(hum), floatOrNaN(area)
		p.SoilPH, p.Nitrogen, p.Phosphorus = floatOrNaN(ph), floatOrNaN(n), floatOrNaN(phos)
		p.Potassium, p.OrganicMatter = floatOrNaN(k), floatOrNaN(om)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}
	return out, nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
