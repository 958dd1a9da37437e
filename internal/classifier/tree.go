package classifier

import (
	"math/rand/v2"
	"sort"
)

// Node is one node of a flattened decision tree. Leaves carry the class
// distribution; internal nodes send x to Left when x[Feature] <= Threshold.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     []float64
}

// Tree is a fitted CART classification tree.
type Tree struct {
	Nodes []Node
}

func (t *Tree) proba(x []float64) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
}

// treeBuilder grows one tree over weighted samples. Weights fold in both the
// bootstrap multiplicity and the class weight, so a sample drawn twice
// counts twice.
type treeBuilder struct {
	X          [][]float64
	y          []int
	w          []float64
	nClasses   int
	nFeatures  int
	params     treeParams
	rng        *rand.Rand
	tree       Tree
	importance []float64
}

func newTreeBuilder(X [][]float64, y []int, w []float64, nClasses int, p treeParams, rng *rand.Rand) *treeBuilder {
	return &treeBuilder{
		X:          X,
		y:          y,
		w:          w,
		nClasses:   nClasses,
		nFeatures:  len(X[0]),
		params:     p,
		rng:        rng,
		importance: make([]float64, len(X[0])),
	}
}

// fit grows the tree from every sample with non-zero weight.
func (b *treeBuilder) fit() (Tree, []float64) {
	idx := make([]int, 0, len(b.y))
	for i, w := range b.w {
		if w > 0 {
			idx = append(idx, i)
		}
	}
	b.build(idx, 0)

	total := 0.0
	for _, v := range b.importance {
		total += v
	}
	if total > 0 {
		for i := range b.importance {
			b.importance[i] /= total
		}
	}
	return b.tree, b.importance
}

func (b *treeBuilder) counts(idx []int) ([]float64, float64) {
	c := make([]float64, b.nClasses)
	total := 0.0
	for _, i := range idx {
		c[b.y[i]] += b.w[i]
		total += b.w[i]
	}
	return c, total
}

func gini(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / total
		sum += p * p
	}
	return 1 - sum
}

const impurityEpsilon = 1e-12

type split struct {
	feature   int
	threshold float64
	cost      float64 // wL*giniL + wR*giniR
	wLeft     float64
	wRight    float64
	impLeft   float64
	impRight  float64
}

func (b *treeBuilder) build(idx []int, depth int) int {
	counts, total := b.counts(idx)
	impurity := gini(counts, total)

	self := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{})

	if depth >= b.params.maxDepth ||
		len(idx) < b.params.minSamplesSplit ||
		len(idx) < 2*b.params.minSamplesLeaf ||
		impurity <= impurityEpsilon {
		b.tree.Nodes[self] = leaf(counts, total)
		return self
	}

	best, ok := b.bestSplit(idx, counts, total)
	if !ok {
		b.tree.Nodes[self] = leaf(counts, total)
		return self
	}

	b.importance[best.feature] += total*impurity - best.wLeft*best.impLeft - best.wRight*best.impRight

	var left, right []int
	for _, i := range idx {
		if b.X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.tree.Nodes[self] = Node{Feature: best.feature, Threshold: best.threshold, Left: l, Right: r}
	return self
}

// bestSplit draws features in random order and evaluates them until
// maxFeatures non-constant features have been visited.
func (b *treeBuilder) bestSplit(idx []int, counts []float64, total float64) (split, bool) {
	order := b.rng.Perm(b.nFeatures)
	sorted := make([]int, len(idx))
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)

	var best split
	found := false
	visited := 0

	for _, f := range order {
		if visited >= b.params.maxFeatures {
			break
		}
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })
		if b.X[sorted[0]][f] == b.X[sorted[len(sorted)-1]][f] {
			continue
		}
		visited++

		for k := range left {
			left[k] = 0
		}
		copy(right, counts)
		wl, wr := 0.0, total

		n := len(sorted)
		for pos := 0; pos < n-1; pos++ {
			i := sorted[pos]
			left[b.y[i]] += b.w[i]
			right[b.y[i]] -= b.w[i]
			wl += b.w[i]
			wr -= b.w[i]

			lo, hi := b.X[i][f], b.X[sorted[pos+1]][f]
			if lo == hi {
				continue
			}
			nl := pos + 1
			if nl < b.params.minSamplesLeaf || n-nl < b.params.minSamplesLeaf {
				continue
			}

			gl, gr := gini(left, wl), gini(right, wr)
			cost := wl*gl + wr*gr
			if !found || cost < best.cost {
				thr := lo + (hi-lo)/2
				if thr == hi {
					thr = lo
				}
				best = split{
					feature: f, threshold: thr, cost: cost,
					wLeft: wl, wRight: wr, impLeft: gl, impRight: gr,
				}
				found = true
			}
		}
	}
	return best, found
}

func leaf(counts []float64, total float64) Node {
	v := make([]float64, len(counts))
	if total > 0 {
		for i, c := range counts {
			v[i] = c / total
		}
	}
	return Node{Leaf: true, Value: v}
}
