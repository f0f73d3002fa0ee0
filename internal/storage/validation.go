package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/cropcast/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidLimit      = errors.New("limit must be positive")
	ErrInvalidPrediction = errors.New("invalid prediction")
	ErrInvalidRun        = errors.New("invalid training run")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	return nil
}

// validatePrediction only checks the estimate; inputs may legitimately be partial.
func validatePrediction(p *model.Prediction) error {
	if p == nil {
		return fmt.Errorf("%w: prediction", ErrNilParameter)
	}
	if math.IsNaN(p.PredictedYield) || math.IsInf(p.PredictedYield, 0) {
		return fmt.Errorf("%w: predicted yield must be finite", ErrInvalidPrediction)
	}
	return nil
}

func validateTrainingRun(r *model.TrainingReport) error {
	if r == nil {
		return fmt.Errorf("%w: training report", ErrNilParameter)
	}
	if strings.TrimSpace(r.RunID) == "" {
		return fmt.Errorf("%w: run id is required", ErrInvalidRun)
	}
	if r.SampleCount <= 0 {
		return fmt.Errorf("%w: sample count must be positive", ErrInvalidRun)
	}
	return nil
}
