package storage

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cropcast/internal/model"
)

func samplePrediction(yield float64, at time.Time) *model.Prediction {
	return &model.Prediction{
		CropType:       "rice",
		Region:         "coastal",
		SoilType:       "alluvial",
		Temperature:    28,
		Rainfall:       1200,
		Humidity:       75,
		SoilPH:         6.5,
		Nitrogen:       0.15,
		Phosphorus:     0.08,
		Potassium:      0.12,
		OrganicMatter:  math.NaN(),
		Area:           math.NaN(),
		PredictedYield: yield,
		ModelRunID:     "run-1",
		CreatedAt:      at,
	}
}

func TestSavePrediction_RoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first := samplePrediction(3100, base)
	second := samplePrediction(3300, base.Add(time.Hour))
	second.CropType = ""

	require.NoError(t, store.SavePrediction(ctx, first))
	require.NoError(t, store.SavePrediction(ctx, second))
	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)

	n, err := store.CountPredictions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recent, err := store.RecentPredictions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, second.ID, recent[0].ID)
	assert.Equal(t, "", recent[0].CropType)
	assert.Equal(t, "rice", recent[1].CropType)
	assert.Equal(t, 3100.0, recent[1].PredictedYield)
	assert.Equal(t, 6.5, recent[1].SoilPH)
	assert.True(t, math.IsNaN(recent[1].OrganicMatter))
	assert.True(t, math.IsNaN(recent[1].Area))
	assert.Equal(t, "run-1", recent[1].ModelRunID)
	assert.True(t, base.Equal(recent[1].CreatedAt))
}

func TestSavePrediction_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	assert.ErrorIs(t, store.SavePrediction(ctx, nil), ErrNilParameter)
	assert.ErrorIs(t, store.SavePrediction(ctx, samplePrediction(math.NaN(), time.Now())), ErrInvalidPrediction)
	assert.ErrorIs(t, store.SavePrediction(ctx, samplePrediction(math.Inf(1), time.Now())), ErrInvalidPrediction)
}

func TestSavePrediction_DefaultsCreatedAt(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	p := samplePrediction(2000, time.Time{})
	require.NoError(t, store.SavePrediction(context.Background(), p))
	assert.False(t, p.CreatedAt.IsZero())
}

func TestRecentPredictions_Limit(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.SavePrediction(ctx, samplePrediction(float64(1000+i), base.Add(time.Duration(i)*time.Minute))))
	}

	recent, err := store.RecentPredictions(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, 1004.0, recent[0].PredictedYield)

	_, err = store.RecentPredictions(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}
