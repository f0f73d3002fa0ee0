package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cast"
	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/cropcast/internal/artifact"
	"github.com/Veraticus/cropcast/internal/common"
	"github.com/Veraticus/cropcast/internal/features"
	"github.com/Veraticus/cropcast/internal/model"
)

// Loader reads the persisted artifact set. artifact.Store implements it.
type Loader interface {
	Load() (*artifact.Model, error)
}

// Trainer produces a new artifact set. training.Pipeline implements it.
type Trainer interface {
	Run(ctx context.Context) (*model.TrainingReport, error)
}

// HistoryRecorder stores answered predictions.
type HistoryRecorder interface {
	SavePrediction(ctx context.Context, p *model.Prediction) error
}

// Service serves predictions. It is safe for concurrent use; at most one
// training run is in flight at a time.
type Service struct {
	loader  Loader
	trainer Trainer
	history HistoryRecorder
	handle  *ModelHandle
	group   singleflight.Group
	mu      sync.RWMutex
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every answered prediction in h.
func WithHistory(h HistoryRecorder) Option {
	return func(s *Service) { s.history = h }
}

// NewService returns a service loading from loader. trainer may be nil, in
// which case a missing model is reported as common.ErrModelNotFit.
func NewService(loader Loader, trainer Trainer, opts ...Option) *Service {
	s := &Service{loader: loader, trainer: trainer}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Current returns the loaded handle, or nil when nothing is loaded yet.
func (s *Service) Current() *ModelHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle
}

// Handle returns the loaded model, loading it on first use. When no model has
// been persisted, it trains one synchronously.
func (s *Service) Handle(ctx context.Context) (*ModelHandle, error) {
	if h := s.Current(); h != nil {
		return h, nil
	}

	v, err, _ := s.group.Do("load", func() (any, error) {
		if h := s.Current(); h != nil {
			return h, nil
		}

		m, err := s.loader.Load()
		if errors.Is(err, common.ErrModelNotFit) && s.trainer != nil {
			slog.Info("No trained model found, training one now")
			if _, trainErr := s.train(ctx); trainErr != nil {
				return nil, trainErr
			}
			m, err = s.loader.Load()
		}
		if err != nil {
			return nil, err
		}

		h := NewModelHandle(m)
		s.swap(h)
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ModelHandle), nil
}

// Predict returns a yield estimate for raw. Missing fields default and unknown
// keys are ignored.
func (s *Service) Predict(ctx context.Context, raw map[string]any) (float64, error) {
	h, err := s.Handle(ctx)
	if err != nil {
		return 0, err
	}

	y, err := h.Predict(raw)
	if err != nil {
		return 0, err
	}

	if s.history != nil {
		p := toPrediction(raw, y, h.RunID())
		if err := s.history.SavePrediction(ctx, p); err != nil {
			slog.Warn("Failed to record prediction", "error", err)
		}
	}
	return y, nil
}

// Reload replaces the loaded handle with the persisted artifact set.
func (s *Service) Reload() (*ModelHandle, error) {
	m, err := s.loader.Load()
	if err != nil {
		return nil, err
	}
	h := NewModelHandle(m)
	s.swap(h)
	slog.Info("Model reloaded", "run_id", h.RunID())
	return h, nil
}

// Retrain runs the trainer and loads its output. Concurrent calls share one run.
func (s *Service) Retrain(ctx context.Context) (*model.TrainingReport, error) {
	if s.trainer == nil {
		return nil, fmt.Errorf("%w: no trainer configured", common.ErrModelNotFit)
	}
	report, err := s.train(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) train(ctx context.Context) (*model.TrainingReport, error) {
	// The run is shared by every waiting caller, so one caller going away
	// must not cancel it.
	runCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do("train", func() (any, error) {
		return s.trainer.Run(runCtx)
	})
	if shared {
		common.LogDebug("Joined in-flight training run", common.Fields{"key": "train"})
	}
	if err != nil {
		return nil, err
	}
	return v.(*model.TrainingReport), nil
}

func (s *Service) swap(h *ModelHandle) {
	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()
}

// toPrediction copies the recognised raw inputs into a history row.
func toPrediction(raw map[string]any, y float64, runID string) *model.Prediction {
	p := model.NewEmptyPrediction()
	p.PredictedYield = y
	p.ModelRunID = runID

	for key, value := range raw {
		if value == nil {
			continue
		}
		col := features.CanonicalName(key)
		if model.IsCategorical(col) {
			label := cast.ToString(value)
			switch col {
			case model.ColCropType:
				p.CropType = label
			case model.ColRegion:
				p.Region = label
			case model.ColSoilType:
				p.SoilType = label
			}
			continue
		}

		v, err := cast.ToFloat64E(value)
		if err != nil {
			continue
		}
		switch col {
		case model.ColTemperature:
			p.Temperature = v
		case model.ColRainfall:
			p.Rainfall = v
		case model.ColHumidity:
			p.Humidity = v
		case model.ColSoilPH:
			p.SoilPH = v
		case model.ColNitrogen:
			p.Nitrogen = v
		case model.ColPhosphorus:
			p.Phosphorus = v
		case model.ColPotassium:
			p.Potassium = v
		case model.ColOrganicMatter:
			p.OrganicMatter = v
		case "area":
			p.Area = v
		}
	}
	return &p
}
