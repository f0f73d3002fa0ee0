package forest

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Errors returned by the forest.
var (
	ErrEmptyInput     = errors.New("forest: empty X")
	ErrLengthMismatch = errors.New("forest: X and y length mismatch")
	ErrRaggedInput    = errors.New("forest: inconsistent number of features in X rows")
	ErrNotFitted      = errors.New("forest: model not fitted")
)

// RandomForest is a bagged ensemble of regression trees. Predictions are the
// mean of the tree predictions.
type RandomForest struct {
	// Hyperparameters
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	Seed            uint64

	// Fitted state
	Trees       []*Tree
	Importances []float64
	NFeatures   int

	workers  int
	progress func()
}

// Option configures a RandomForest.
type Option func(*RandomForest)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option { return func(rf *RandomForest) { rf.NEstimators = n } }

// WithMaxDepth limits tree depth; 0 means unlimited.
func WithMaxDepth(d int) Option { return func(rf *RandomForest) { rf.MaxDepth = d } }

// WithMaxFeatures sets how many features each split considers; 0 means all.
func WithMaxFeatures(k int) Option { return func(rf *RandomForest) { rf.MaxFeatures = k } }

// WithSeed fixes the random state.
func WithSeed(seed uint64) Option { return func(rf *RandomForest) { rf.Seed = seed } }

// WithWorkers caps the number of trees grown concurrently.
func WithWorkers(n int) Option { return func(rf *RandomForest) { rf.workers = n } }

// WithProgress registers a callback invoked once per finished tree.
func WithProgress(fn func()) Option { return func(rf *RandomForest) { rf.progress = fn } }

// New returns a forest with the defaults used for yield training.
func New(opts ...Option) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MaxDepth:        10,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Bootstrap:       true,
		Seed:            42,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Clone returns an unfitted forest with the same hyperparameters.
func (rf *RandomForest) Clone() *RandomForest {
	return &RandomForest{
		NEstimators:     rf.NEstimators,
		MaxDepth:        rf.MaxDepth,
		MinSamplesSplit: rf.MinSamplesSplit,
		MinSamplesLeaf:  rf.MinSamplesLeaf,
		MaxFeatures:     rf.MaxFeatures,
		Bootstrap:       rf.Bootstrap,
		Seed:            rf.Seed,
		workers:         rf.workers,
	}
}

// Fit grows the trees. Each tree has its own seeded source, so the result does
// not depend on scheduling.
func (rf *RandomForest) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return ErrEmptyInput
	}
	n := len(X)
	if len(y) != n {
		return fmt.Errorf("%w: %d rows, %d targets", ErrLengthMismatch, n, len(y))
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrRaggedInput, i, len(X[i]), p)
		}
	}
	if p == 0 {
		return ErrEmptyInput
	}
	if rf.NEstimators <= 0 {
		return fmt.Errorf("forest: NEstimators must be positive, got %d", rf.NEstimators)
	}

	params := treeParams{
		maxDepth:        rf.MaxDepth,
		minSamplesSplit: max(rf.MinSamplesSplit, 2),
		minSamplesLeaf:  max(rf.MinSamplesLeaf, 1),
		maxFeatures:     rf.MaxFeatures,
	}

	trees := make([]*Tree, rf.NEstimators)
	importances := make([][]float64, rf.NEstimators)

	var g errgroup.Group
	workers := rf.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)

	for t := 0; t < rf.NEstimators; t++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(rf.Seed, uint64(t)))

			sample := make([]int, n)
			for j := range sample {
				if rf.Bootstrap {
					sample[j] = rng.IntN(n)
				} else {
					sample[j] = j
				}
			}

			trees[t], importances[t] = growTree(X, y, sample, params, rng)
			if rf.progress != nil {
				rf.progress()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rf.Trees = trees
	rf.NFeatures = p
	rf.Importances = averageImportances(importances, p)
	return nil
}

// averageImportances normalises each tree's impurity decrease to sum to one
// and averages across trees.
func averageImportances(perTree [][]float64, p int) []float64 {
	out := make([]float64, p)
	counted := 0
	for _, imp := range perTree {
		var total float64
		for _, v := range imp {
			total += v
		}
		if total == 0 {
			continue
		}
		for f, v := range imp {
			out[f] += v / total
		}
		counted++
	}
	if counted == 0 {
		return out
	}
	for f := range out {
		out[f] /= float64(counted)
	}
	return out
}

// Predict returns the ensemble estimate for each row of X.
func (rf *RandomForest) Predict(X [][]float64) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, x := range X {
		v, err := rf.PredictOne(x)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// PredictOne returns the ensemble estimate for a single feature vector.
func (rf *RandomForest) PredictOne(x []float64) (float64, error) {
	if len(rf.Trees) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != rf.NFeatures {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrRaggedInput, len(x), rf.NFeatures)
	}
	var sum float64
	for _, t := range rf.Trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(rf.Trees)), nil
}

// FeatureImportances returns the mean normalised impurity decrease per feature.
func (rf *RandomForest) FeatureImportances() []float64 {
	return append([]float64(nil), rf.Importances...)
}
