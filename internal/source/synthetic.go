package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/cropcast/internal/model"
	"github.com/Veraticus/cropcast/internal/synth"
)

// SyntheticSource is the terminal fallback. Generated data is written to the
// cache so later runs pick it up as the cache source.
type SyntheticSource struct {
	gen   *synth.Generator
	cache *CSVCache
	n     int
}

// NewSyntheticSource returns a source producing n records from gen. cache may be nil.
func NewSyntheticSource(gen *synth.Generator, n int, cache *CSVCache) *SyntheticSource {
	return &SyntheticSource{gen: gen, n: n, cache: cache}
}

// Name implements DataSource.
func (s *SyntheticSource) Name() string {
	return string(model.SourceSynthetic)
}

// TryAcquire implements DataSource. It never fails.
func (s *SyntheticSource) TryAcquire(ctx context.Context) (model.Dataset, error) {
	return s.Generate(ctx), nil
}

// Generate implements Fallback. A cache write failure is logged, not returned.
func (s *SyntheticSource) Generate(_ context.Context) model.Dataset {
	ds := s.gen.Dataset(s.n)
	ds.Provenance = model.Provenance{
		Kind:       model.SourceSynthetic,
		Detail:     fmt.Sprintf("seed=%d n=%d", s.gen.Seed(), s.n),
		AcquiredAt: time.Now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Save(ds); err != nil {
			slog.Warn("Failed to cache synthetic data", "path", s.cache.Path(), "error", err)
		} else {
			slog.Info("Synthetic data saved", "path", s.cache.Path(), "rows", ds.Len())
		}
	}
	return ds
}
