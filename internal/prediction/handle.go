// Package prediction answers single-record yield predictions from a persisted
// model, training one first when none exists.
package prediction

import (
	"fmt"
	"time"

	"github.com/Veraticus/cropcast/internal/artifact"
	"github.com/Veraticus/cropcast/internal/model"
)

// ModelHandle is a loaded, immutable model. It is safe for concurrent use.
type ModelHandle struct {
	loadedAt time.Time
	m        *artifact.Model
}

// NewModelHandle wraps a loaded artifact set.
func NewModelHandle(m *artifact.Model) *ModelHandle {
	return &ModelHandle{m: m, loadedAt: time.Now().UTC()}
}

// Predict transforms raw against the persisted schema and returns the estimate.
func (h *ModelHandle) Predict(raw map[string]any) (float64, error) {
	x := h.m.Codec.Transform(raw)
	y, err := h.m.Forest.PredictOne(x)
	if err != nil {
		return 0, fmt.Errorf("failed to predict: %w", err)
	}
	return y, nil
}

// Metadata returns the metadata of the loaded run.
func (h *ModelHandle) Metadata() model.Metadata {
	return h.m.Metadata
}

// RunID identifies the training run the handle was loaded from.
func (h *ModelHandle) RunID() string {
	return h.m.Metadata.RunID
}

// LoadedAt is when the handle was created.
func (h *ModelHandle) LoadedAt() time.Time {
	return h.loadedAt
}
