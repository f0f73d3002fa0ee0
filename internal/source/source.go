// Package source acquires training data from an ordered list of sources.
//
// The chain tries the live database, then the flat-file cache, and finally
// generates synthetic data. It never fails: every source error is logged and
// treated as a reason to fall through.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/cropcast/internal/common"
	"github.com/Veraticus/cropcast/internal/model"
)

// DataSource is one place training data may come from. TryAcquire returns an
// error wrapping common.ErrSourceUnavailable or common.ErrInsufficientData
// when the source cannot supply an adequate dataset.
type DataSource interface {
	Name() string
	TryAcquire(ctx context.Context) (model.Dataset, error)
}

// Fallback produces a dataset unconditionally.
type Fallback interface {
	Generate(ctx context.Context) model.Dataset
}

// Chain iterates its sources in order and returns the first adequate dataset.
type Chain struct {
	fallback Fallback
	sources  []DataSource
	minRows  int
}

// NewChain builds a chain. Datasets with fewer than minRows records are
// discarded in favour of the fallback, whichever source produced them.
func NewChain(fallback Fallback, minRows int, sources ...DataSource) *Chain {
	return &Chain{
		fallback: fallback,
		sources:  sources,
		minRows:  minRows,
	}
}

// Acquire returns training data. It cannot fail.
func (c *Chain) Acquire(ctx context.Context) model.Dataset {
	for _, src := range c.sources {
		ds, err := tryAcquire(ctx, src)
		if err != nil {
			if common.IsRecoverable(err) {
				slog.Info("Data source skipped", "source", src.Name(), "reason", err)
			} else {
				slog.Warn("Data source failed unexpectedly", "source", src.Name(), "error", err)
			}
			continue
		}

		if ds.Len() < c.minRows {
			slog.Warn("Insufficient data from source, using synthetic data",
				"source", src.Name(), "rows", ds.Len(), "min_rows", c.minRows)
			break
		}

		slog.Info("Using training data", "source", src.Name(), "rows", ds.Len())
		return ds
	}

	ds := c.fallback.Generate(ctx)
	slog.Info("Using training data", "source", string(model.SourceSynthetic), "rows", ds.Len())
	return ds
}

// tryAcquire converts panics from a source into ErrSourceUnavailable so that a
// misbehaving source cannot break the chain.
func tryAcquire(ctx context.Context, src DataSource) (ds model.Dataset, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", common.ErrSourceUnavailable, src.Name(), r)
		}
	}()

	ds, err = src.TryAcquire(ctx)
	if err != nil {
		return model.Dataset{}, err
	}
	if ds.Provenance.AcquiredAt.IsZero() {
		ds.Provenance.AcquiredAt = time.Now().UTC()
	}
	return ds, nil
}
