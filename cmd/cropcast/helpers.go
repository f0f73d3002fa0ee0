package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/cropcast/internal/artifact"
	"github.com/Veraticus/cropcast/internal/config"
	"github.com/Veraticus/cropcast/internal/source"
	"github.com/Veraticus/cropcast/internal/storage"
	"github.com/Veraticus/cropcast/internal/synth"
	"github.com/Veraticus/cropcast/internal/training"
)

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// initHistory opens and migrates the prediction history store. It returns a
// nil store when history is disabled.
func initHistory(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}

	store, err := storage.NewSQLiteStorage(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// newChain wires the database, cache and synthetic sources in fallback order.
func newChain(cfg *config.Config) *source.Chain {
	cache := source.NewCSVCache(cfg.Cache.Path)
	fallback := source.NewSyntheticSource(synth.NewGenerator(cfg.Training.Seed), cfg.Training.SyntheticSamples, cache)

	var sources []source.DataSource
	if cfg.Database.Enabled {
		sources = append(sources, source.NewDatabaseSource(cfg.Database))
	}
	sources = append(sources, cache)
	return source.NewChain(fallback, cfg.Training.MinRows, sources...)
}

// newPipeline builds the training pipeline, recording runs in history when it is open.
func newPipeline(cfg *config.Config, history *storage.SQLiteStorage, opts ...training.Option) *training.Pipeline {
	if history != nil {
		opts = append(opts, training.WithRunRecorder(history))
	}
	return training.NewPipeline(cfg.Training, newChain(cfg), artifact.NewStore(cfg.Model.Dir), opts...)
}

func closeHistory(store *storage.SQLiteStorage) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		slog.Warn("Failed to close history database", "error", err)
	}
}
