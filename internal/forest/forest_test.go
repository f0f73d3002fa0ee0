package forest

import (
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepData has a target driven entirely by feature 0; feature 1 is noise.
func stepData(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewPCG(1, 2))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		a := rng.Float64() * 10
		X[i] = []float64{a, rng.Float64()}
		if a < 5 {
			y[i] = 100
		} else {
			y[i] = 300
		}
	}
	return X, y
}

func TestRandomForest_LearnsStepFunction(t *testing.T) {
	X, y := stepData(300)
	rf := New(WithNEstimators(20), WithMaxDepth(4), WithSeed(7))
	require.NoError(t, rf.Fit(X, y))

	low, err := rf.PredictOne([]float64{2, 0.5})
	require.NoError(t, err)
	high, err := rf.PredictOne([]float64{8, 0.5})
	require.NoError(t, err)

	assert.InDelta(t, 100, low, 5)
	assert.InDelta(t, 300, high, 5)

	imp := rf.FeatureImportances()
	require.Len(t, imp, 2)
	assert.Greater(t, imp[0], 0.9)
	assert.InDelta(t, 1.0, imp[0]+imp[1], 1e-9)
}

func TestRandomForest_DeterministicAcrossWorkerCounts(t *testing.T) {
	X, y := stepData(200)

	a := New(WithNEstimators(12), WithSeed(3), WithWorkers(1))
	b := New(WithNEstimators(12), WithSeed(3), WithWorkers(8))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
	assert.Equal(t, a.Importances, b.Importances)
}

func TestRandomForest_RespectsMaxDepth(t *testing.T) {
	X, y := stepData(200)
	for i := range y {
		y[i] += X[i][1] * 50
	}
	rf := New(WithNEstimators(5), WithMaxDepth(3))
	require.NoError(t, rf.Fit(X, y))
	for _, tree := range rf.Trees {
		assert.LessOrEqual(t, tree.Depth(), 3)
	}
}

func TestRandomForest_Progress(t *testing.T) {
	X, y := stepData(50)
	var calls atomic.Int32
	rf := New(WithNEstimators(9), WithProgress(func() { calls.Add(1) }))
	require.NoError(t, rf.Fit(X, y))
	assert.EqualValues(t, 9, calls.Load())
}

func TestRandomForest_InputErrors(t *testing.T) {
	rf := New(WithNEstimators(2))

	assert.ErrorIs(t, rf.Fit(nil, nil), ErrEmptyInput)
	assert.ErrorIs(t, rf.Fit([][]float64{{1}, {2}}, []float64{1}), ErrLengthMismatch)
	assert.ErrorIs(t, rf.Fit([][]float64{{1, 2}, {2}}, []float64{1, 2}), ErrRaggedInput)

	_, err := rf.PredictOne([]float64{1})
	assert.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, rf.Fit([][]float64{{1, 2}, {2, 3}}, []float64{1, 2}))
	_, err = rf.PredictOne([]float64{1})
	assert.ErrorIs(t, err, ErrRaggedInput)
}

func TestRandomForest_ConstantTarget(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{5, 5, 5, 5}
	rf := New(WithNEstimators(3))
	require.NoError(t, rf.Fit(X, y))

	v, err := rf.PredictOne([]float64{10})
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, []float64{0}, rf.FeatureImportances())
}

func TestClone_DropsFittedState(t *testing.T) {
	X, y := stepData(40)
	rf := New(WithNEstimators(4), WithMaxDepth(2), WithSeed(11))
	require.NoError(t, rf.Fit(X, y))

	c := rf.Clone()
	assert.Empty(t, c.Trees)
	assert.Equal(t, rf.NEstimators, c.NEstimators)
	assert.Equal(t, rf.MaxDepth, c.MaxDepth)
	assert.Equal(t, rf.Seed, c.Seed)
}
