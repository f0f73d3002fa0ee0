// Package training runs the end-to-end fit: acquire data, fit the feature
// codec, fit and evaluate the forest, and persist the artifact set.
package training

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/cropcast/internal/artifact"
	"github.com/Veraticus/cropcast/internal/common"
	"github.com/Veraticus/cropcast/internal/config"
	"github.com/Veraticus/cropcast/internal/features"
	"github.com/Veraticus/cropcast/internal/forest"
	"github.com/Veraticus/cropcast/internal/model"
)

// Acquirer supplies the training dataset. source.Chain implements it.
type Acquirer interface {
	Acquire(ctx context.Context) model.Dataset
}

// RunRecorder stores a summary of each completed run.
type RunRecorder interface {
	SaveTrainingRun(ctx context.Context, r *model.TrainingReport) error
}

// Pipeline trains and persists a model.
type Pipeline struct {
	data     Acquirer
	store    *artifact.Store
	runs     RunRecorder
	progress func()
	cfg      config.TrainingConfig
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunRecorder records every successful run in r.
func WithRunRecorder(r RunRecorder) Option {
	return func(p *Pipeline) { p.runs = r }
}

// WithProgress registers a callback invoked once per tree of the final model.
func WithProgress(fn func()) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// NewPipeline returns a pipeline reading from data and writing to store.
func NewPipeline(cfg config.TrainingConfig, data Acquirer, store *artifact.Store, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, data: data, store: store}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Store returns the artifact store the pipeline writes to.
func (p *Pipeline) Store() *artifact.Store {
	return p.store
}

// Run executes one training run. Re-running on the same data produces the
// same metrics and an equivalent model.
func (p *Pipeline) Run(ctx context.Context) (*model.TrainingReport, error) {
	start := time.Now()

	ds := p.data.Acquire(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	X, y, codec, err := features.Fit(ds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode training data: %w", err)
	}
	common.LogInfo("Encoded training data", common.Fields{
		"source":   ds.Provenance.Kind,
		"rows":     len(X),
		"features": codec.Schema.Len(),
	})

	trainIdx, testIdx, err := forest.TrainTestSplit(len(X), p.cfg.TestSize, p.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInsufficientData, err)
	}
	xTrain, yTrain := forest.Take(X, y, trainIdx)
	xTest, yTest := forest.Take(X, y, testIdx)

	rf := p.newForest()
	if err := rf.Fit(xTrain, yTrain); err != nil {
		return nil, fmt.Errorf("failed to fit model: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pred, err := rf.Predict(xTest)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate model: %w", err)
	}
	metrics := model.Metrics{
		MAE: forest.MAE(yTest, pred),
		MSE: forest.MSE(yTest, pred),
		R2:  forest.R2(yTest, pred),
	}

	scores, err := forest.CrossValR2(rf.Clone(), X, y, p.cfg.Folds)
	if err != nil {
		return nil, fmt.Errorf("failed to cross-validate model: %w", err)
	}
	metrics.CVR2Mean, metrics.CVR2Std = forest.MeanStd(scores)

	common.LogInfo("Model evaluated", common.Fields{
		"mae":        metrics.MAE,
		"mse":        metrics.MSE,
		"r2":         metrics.R2,
		"cv_r2_mean": metrics.CVR2Mean,
		"cv_r2_2std": 2 * metrics.CVR2Std,
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trainedAt := time.Now().UTC()
	runID := uuid.NewString()
	m := &artifact.Model{
		Forest: rf,
		Codec:  codec,
		Metadata: model.Metadata{
			RunID:             runID,
			TrainingDate:      trainedAt,
			ModelType:         model.ModelType,
			Source:            ds.Provenance.Kind,
			Features:          codec.Schema,
			FeatureImportance: importanceByName(codec.Schema, rf.FeatureImportances()),
			Metrics:           metrics,
			SampleCount:       len(X),
		},
	}
	if err := p.store.Save(m); err != nil {
		return nil, err
	}

	report := &model.TrainingReport{
		TrainedAt:   trainedAt,
		RunID:       runID,
		Source:      ds.Provenance.Kind,
		MAE:         metrics.MAE,
		MSE:         metrics.MSE,
		R2:          metrics.R2,
		CVR2Mean:    metrics.CVR2Mean,
		CVR2Std:     metrics.CVR2Std,
		SampleCount: len(X),
	}

	if p.runs != nil {
		if err := p.runs.SaveTrainingRun(ctx, report); err != nil {
			common.LogError(err, "Failed to record training run", common.Fields{"run_id": runID})
		}
	}

	common.LogInfo("Training complete", common.Fields{
		"run_id":   runID,
		"dir":      p.store.Dir(),
		"duration": time.Since(start).Round(time.Millisecond),
	})
	return report, nil
}

func (p *Pipeline) newForest() *forest.RandomForest {
	opts := []forest.Option{forest.WithSeed(p.cfg.Seed)}
	if p.cfg.Trees > 0 {
		opts = append(opts, forest.WithNEstimators(p.cfg.Trees))
	}
	if p.cfg.MaxDepth > 0 {
		opts = append(opts, forest.WithMaxDepth(p.cfg.MaxDepth))
	}
	if p.cfg.MaxFeatures > 0 {
		opts = append(opts, forest.WithMaxFeatures(p.cfg.MaxFeatures))
	}
	if p.cfg.Workers > 0 {
		opts = append(opts, forest.WithWorkers(p.cfg.Workers))
	}
	if p.progress != nil {
		opts = append(opts, forest.WithProgress(p.progress))
	}
	return forest.New(opts...)
}

func importanceByName(schema features.FeatureSchema, imp []float64) map[string]float64 {
	out := make(map[string]float64, len(schema))
	for i, name := range schema {
		if i < len(imp) {
			out[name] = imp[i]
		}
	}
	return out
}
