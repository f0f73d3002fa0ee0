// Package forest implements a bagged ensemble of CART regression trees.
package forest

import (
	"math/rand/v2"
	"slices"
)

const leafFeature = -1

// Node is one node of a flattened regression tree. Leaves have Feature == -1.
type Node struct {
	Threshold float64
	Value     float64
	Feature   int
	Left      int
	Right     int
}

// Tree is a fitted regression tree stored as a flat node slice (root at 0).
type Tree struct {
	Nodes []Node
}

// treeParams are the per-tree growth limits.
type treeParams struct {
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 means all features
}

// treeBuilder grows one tree over a bootstrap sample.
type treeBuilder struct {
	X           [][]float64
	y           []float64
	rng         *rand.Rand
	importances []float64
	nodes       []Node
	params      treeParams
	nFeatures   int
}

func growTree(X [][]float64, y []float64, sample []int, params treeParams, rng *rand.Rand) (*Tree, []float64) {
	b := &treeBuilder{
		X:           X,
		y:           y,
		rng:         rng,
		params:      params,
		nFeatures:   len(X[0]),
		importances: make([]float64, len(X[0])),
	}
	b.build(sample, 0)
	return &Tree{Nodes: b.nodes}, b.importances
}

// build appends the subtree for idx and returns its node index.
func (b *treeBuilder) build(idx []int, depth int) int {
	var sum, sumSq float64
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean := sum / n

	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: leafFeature, Value: mean})

	if len(idx) < b.params.minSamplesSplit ||
		(b.params.maxDepth > 0 && depth >= b.params.maxDepth) ||
		sumSq-sum*sum/n <= 1e-12 {
		return self
	}

	split, ok := b.bestSplit(idx, sum)
	if !ok {
		return self
	}

	b.importances[split.feature] += split.gain

	left := make([]int, 0, split.nLeft)
	right := make([]int, 0, len(idx)-split.nLeft)
	for _, i := range idx {
		if b.X[i][split.feature] <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self] = Node{
		Feature:   split.feature,
		Threshold: split.threshold,
		Value:     mean,
		Left:      l,
		Right:     r,
	}
	return self
}

type candidateSplit struct {
	feature   int
	threshold float64
	gain      float64
	nLeft     int
}

// bestSplit finds the threshold maximising the reduction in squared error.
func (b *treeBuilder) bestSplit(idx []int, total float64) (candidateSplit, bool) {
	n := len(idx)
	parentScore := total * total / float64(n)
	best := candidateSplit{gain: 0}
	found := false

	sorted := make([]int, n)
	for _, f := range b.candidateFeatures() {
		copy(sorted, idx)
		slices.SortFunc(sorted, func(a, c int) int {
			va, vc := b.X[a][f], b.X[c][f]
			switch {
			case va < vc:
				return -1
			case va > vc:
				return 1
			}
			return 0
		})

		var leftSum float64
		minLeaf := b.params.minSamplesLeaf
		for i := 0; i < n-1; i++ {
			leftSum += b.y[sorted[i]]
			nLeft := i + 1
			nRight := n - nLeft
			if nLeft < minLeaf || nRight < minLeaf {
				continue
			}
			lo, hi := b.X[sorted[i]][f], b.X[sorted[i+1]][f]
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			score := leftSum*leftSum/float64(nLeft) + rightSum*rightSum/float64(nRight)
			gain := score - parentScore
			if gain > best.gain {
				best = candidateSplit{
					feature:   f,
					threshold: lo + (hi-lo)/2,
					gain:      gain,
					nLeft:     nLeft,
				}
				found = true
			}
		}
	}
	return best, found
}

func (b *treeBuilder) candidateFeatures() []int {
	k := b.params.maxFeatures
	if k <= 0 || k >= b.nFeatures {
		all := make([]int, b.nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(b.nFeatures)[:k]
}

// Predict returns the tree's estimate for one feature vector.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Feature == leafFeature {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

// Depth returns the maximum depth of the tree (a lone leaf has depth 0).
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		node := t.Nodes[i]
		if node.Feature == leafFeature {
			return 0
		}
		return 1 + max(walk(node.Left), walk(node.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}
