package tree

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// impurityFunc computes node impurity from weighted class counts.
type impurityFunc func(counts []float64, total float64) float64

func criterionFunc(name string) (impurityFunc, error) {
	switch name {
	case "gini":
		return gini, nil
	case "entropy":
		return entropy, nil
	default:
		return nil, errors.NewValidationError("criterion", "must be one of gini, entropy", name)
	}
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

func entropy(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c > 0 {
			p := c / total
			h -= p * math.Log2(p)
		}
	}
	return h
}

type valueIndex struct {
	value float64
	idx   int
}

// splitInfo describes the best split found for a node.
type splitInfo struct {
	feature     int
	threshold   float64
	improvement float64
	weightLeft  float64
	weightRight float64
	impLeft     float64
	impRight    float64
}

// builder grows a tree depth-first. Scratch buffers are reused across nodes,
// so a builder must not be shared between goroutines.
type builder struct {
	cols     [][]float64 // column-major feature values
	y        []int       // class index per sample
	w        []float64   // sample weights
	nClasses int
	impurity impurityFunc

	maxDepth    int
	minSplit    int
	minLeaf     int
	maxFeatures int

	rng         *rand.Rand
	tree        *Tree
	importances []float64

	order []int
	pairs []valueIndex
}

// buildNode recursively builds the subtree for samples and returns its node ID.
func (b *builder) buildNode(samples []int, parent, depth int) int {
	counts := make([]float64, b.nClasses)
	total := 0.0
	for _, s := range samples {
		counts[b.y[s]] += b.w[s]
		total += b.w[s]
	}
	imp := b.impurity(counts, total)

	value := make([]float64, b.nClasses)
	for k, c := range counts {
		value[k] = c / total
	}

	nodeID := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		NodeID:          nodeID,
		ParentID:        parent,
		LeftChild:       -1,
		RightChild:      -1,
		Depth:           depth,
		Feature:         -1,
		Impurity:        imp,
		NSamples:        len(samples),
		WeightedSamples: total,
		Value:           value,
	})
	if depth > b.tree.MaxDepth {
		b.tree.MaxDepth = depth
	}

	n := len(samples)
	isLeaf := (b.maxDepth > 0 && depth >= b.maxDepth) ||
		n < b.minSplit ||
		n < 2*b.minLeaf ||
		imp <= 1e-12

	var best splitInfo
	if !isLeaf {
		var ok bool
		best, ok = b.findBestSplit(samples, counts, total, imp)
		isLeaf = !ok
	}
	if isLeaf {
		b.tree.NumLeaves++
		return nodeID
	}

	b.importances[best.feature] += total*imp - best.weightLeft*best.impLeft - best.weightRight*best.impRight

	left, right := b.partition(samples, best.feature, best.threshold)
	leftID := b.buildNode(left, nodeID, depth+1)
	rightID := b.buildNode(right, nodeID, depth+1)

	node := &b.tree.Nodes[nodeID]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.LeftChild = leftID
	node.RightChild = rightID
	return nodeID
}

// findBestSplit draws features in a random order and evaluates them until
// maxFeatures features have been visited and at least one of them was
// non-constant in the node.
func (b *builder) findBestSplit(samples []int, counts []float64, total, imp float64) (splitInfo, bool) {
	b.rng.Shuffle(len(b.order), func(i, j int) { b.order[i], b.order[j] = b.order[j], b.order[i] })

	best := splitInfo{feature: -1, improvement: math.Inf(-1)}
	visited, constant := 0, 0
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)

	for _, feature := range b.order {
		if visited >= b.maxFeatures && visited > constant {
			break
		}
		visited++

		col := b.cols[feature]
		pairs := b.pairs[:0]
		for _, s := range samples {
			pairs = append(pairs, valueIndex{value: col[s], idx: s})
		}
		slices.SortFunc(pairs, func(a, c valueIndex) int {
			if r := cmp.Compare(a.value, c.value); r != 0 {
				return r
			}
			return cmp.Compare(a.idx, c.idx)
		})
		b.pairs = pairs

		n := len(pairs)
		if pairs[n-1].value <= pairs[0].value+featureThreshold {
			constant++
			continue
		}

		for k := range left {
			left[k] = 0
		}
		copy(right, counts)
		weightLeft, weightRight := 0.0, total

		for i := 0; i < n-1; i++ {
			s := pairs[i].idx
			left[b.y[s]] += b.w[s]
			right[b.y[s]] -= b.w[s]
			weightLeft += b.w[s]
			weightRight -= b.w[s]

			if pairs[i+1].value <= pairs[i].value+featureThreshold {
				continue
			}
			nLeft := i + 1
			if nLeft < b.minLeaf || n-nLeft < b.minLeaf {
				continue
			}

			impLeft := b.impurity(left, weightLeft)
			impRight := b.impurity(right, weightRight)
			improvement := imp - (weightLeft/total)*impLeft - (weightRight/total)*impRight
			if improvement > best.improvement {
				threshold := (pairs[i].value + pairs[i+1].value) / 2
				if threshold == pairs[i+1].value || math.IsInf(threshold, 0) {
					threshold = pairs[i].value
				}
				best = splitInfo{
					feature:     feature,
					threshold:   threshold,
					improvement: improvement,
					weightLeft:  weightLeft,
					weightRight: weightRight,
					impLeft:     impLeft,
					impRight:    impRight,
				}
			}
		}
	}

	return best, best.feature >= 0
}

// partition splits samples into those going left (x <= threshold) and right.
func (b *builder) partition(samples []int, feature int, threshold float64) ([]int, []int) {
	col := b.cols[feature]
	left := make([]int, 0, len(samples))
	right := make([]int, 0, len(samples))
	for _, s := range samples {
		if col[s] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	return left, right
}
