package forest

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// TrainTestSplit shuffles 0..n-1 with a seeded source and returns the train and
// test indices. The test partition has ceil(n*testSize) rows.
func TrainTestSplit(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("forest: test size must be in (0, 1), got %v", testSize)
	}
	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest == 0 || nTest >= n {
		return nil, nil, fmt.Errorf("forest: cannot split %d rows with test size %v", n, testSize)
	}

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// KFold partitions 0..n-1 into k contiguous folds. The first n%k folds hold one
// extra row.
func KFold(n, k int) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("forest: k must be at least 2, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("forest: cannot make %d folds from %d rows", k, n)
	}
	folds := make([][]int, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		fold := make([]int, size)
		for i := range fold {
			fold[i] = start + i
		}
		folds[f] = fold
		start += size
	}
	return folds, nil
}

// Take returns the rows of X and y selected by idx.
func Take(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}

// CrossValR2 fits a clone of proto on each k-1 fold union and scores R² on the
// held-out fold.
func CrossValR2(proto *RandomForest, X [][]float64, y []float64, k int) ([]float64, error) {
	folds, err := KFold(len(X), k)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, 0, k)
	for f, test := range folds {
		train := make([]int, 0, len(X)-len(test))
		for g, other := range folds {
			if g != f {
				train = append(train, other...)
			}
		}

		xTrain, yTrain := Take(X, y, train)
		xTest, yTest := Take(X, y, test)

		m := proto.Clone()
		if err := m.Fit(xTrain, yTrain); err != nil {
			return nil, fmt.Errorf("fold %d: %w", f, err)
		}
		pred, err := m.Predict(xTest)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", f, err)
		}
		scores = append(scores, R2(yTest, pred))
	}
	return scores, nil
}
