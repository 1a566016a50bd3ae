package volatility

import (
	"math/rand/v2"
	"sort"
)

// Node is one node of a flattened regression tree. Feature < 0 marks a leaf.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a CART regression tree grown on squared error.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

type treeParams struct {
	maxDepth    int // 0 = unlimited
	minSplit    int
	minLeaf     int
	maxFeatures int
}

type treeBuilder struct {
	x     [][]float64
	y     []float64
	p     treeParams
	rng   *rand.Rand
	nodes []Node
}

// fitTree grows a tree on the rows listed in idx. Duplicated indices count as
// repeated samples.
func fitTree(x [][]float64, y []float64, idx []int, p treeParams, rng *rand.Rand) Tree {
	b := &treeBuilder{x: x, y: y, p: p, rng: rng}
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	id := len(b.nodes)
	mean, sse, sq := meanSSE(b.y, idx)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: mean})

	n := len(idx)
	if n < b.p.minSplit || n < 2*b.p.minLeaf || sse <= pureNodeTolerance*sq {
		return id
	}
	if b.p.maxDepth > 0 && depth >= b.p.maxDepth {
		return id
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: mean}
	return id
}

// bestSplit scans every candidate threshold of the sampled features and keeps
// the one with the lowest total squared error.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	nf := len(b.x[idx[0]])
	candidates := make([]int, nf)
	for i := range candidates {
		candidates[i] = i
	}
	if b.p.maxFeatures > 0 && b.p.maxFeatures < nf {
		b.rng.Shuffle(nf, func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
		candidates = candidates[:b.p.maxFeatures]
		sort.Ints(candidates)
	}

	n := len(idx)
	sorted := make([]int, n)
	bestErr := 0.0
	bestFeature, bestThreshold := -1, 0.0

	for _, f := range candidates {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })

		var totalSum, totalSq float64
		for _, i := range sorted {
			totalSum += b.y[i]
			totalSq += b.y[i] * b.y[i]
		}

		var leftSum, leftSq float64
		for k := 1; k < n; k++ {
			yi := b.y[sorted[k-1]]
			leftSum += yi
			leftSq += yi * yi
			if k < b.p.minLeaf || n-k < b.p.minLeaf {
				continue
			}
			lo, hi := b.x[sorted[k-1]][f], b.x[sorted[k]][f]
			if lo == hi {
				continue
			}
			nl, nr := float64(k), float64(n-k)
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			e := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if bestFeature < 0 || e < bestErr {
				bestErr = e
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				if bestThreshold >= hi {
					bestThreshold = lo
				}
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// Predict walks the tree for one feature row.
func (t Tree) Predict(x []float64) float64 {
	i := 0
	for {
		nd := t.Nodes[i]
		if nd.Feature < 0 {
			return nd.Value
		}
		if x[nd.Feature] <= nd.Threshold {
			i = nd.Left
		} else {
			i = nd.Right
		}
	}
}

// pureNodeTolerance treats a node as constant when its squared error is lost
// in cancellation against the raw sum of squares.
const pureNodeTolerance = 1e-12

func meanSSE(y []float64, idx []int) (mean, sse, sq float64) {
	var sum float64
	for _, i := range idx {
		sum += y[i]
		sq += y[i] * y[i]
	}
	mean = sum / float64(len(idx))
	return mean, sq - sum*mean, sq
}
