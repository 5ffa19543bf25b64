// Package tree implements CART decision trees compatible with
// scikit-learn's DecisionTreeClassifier (best splitter).
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/core/model"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// featureThreshold is the minimum gap between two sorted feature values for a
// split to be placed between them.
const featureThreshold = 1e-7

// Node represents a single node in a fitted tree.
type Node struct {
	NodeID     int // Index of the node in Tree.Nodes
	ParentID   int // Parent node ID (-1 for root)
	LeftChild  int // Left child node ID (-1 if leaf)
	RightChild int // Right child node ID (-1 if leaf)
	Depth      int

	// Split information (for non-leaf nodes). Samples with
	// x[Feature] <= Threshold go left.
	Feature   int
	Threshold float64

	Impurity        float64
	NSamples        int     // Number of distinct training samples reaching the node
	WeightedSamples float64 // Sum of sample weights reaching the node

	// Value holds the weighted class distribution, normalized to sum to 1.
	Value []float64
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is the fitted node structure of a DecisionTreeClassifier.
type Tree struct {
	Nodes     []Node
	NClasses  int
	MaxDepth  int
	NumLeaves int
}

// Apply returns the leaf reached by a single sample.
func (t *Tree) Apply(row []float64) *Node {
	node := &t.Nodes[0]
	for !node.IsLeaf() {
		if row[node.Feature] <= node.Threshold {
			node = &t.Nodes[node.LeftChild]
		} else {
			node = &t.Nodes[node.RightChild]
		}
	}
	return node
}

// DecisionTreeClassifier is a CART classification tree.
type DecisionTreeClassifier struct {
	model.BaseEstimator

	criterion       string
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 means all features
	randomState     int64

	nClasses_           int
	classes_            []float64
	tree_               *Tree
	featureImportances_ []float64
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the split quality measure ("gini" or "entropy").
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) { dt.criterion = criterion }
}

// WithMaxDepth limits the depth of the tree. 0 grows until leaves are pure.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples required in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

// WithMaxFeatures sets the number of features considered per split. 0 uses all.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxFeatures = n }
}

// WithRandomState seeds the feature permutation drawn at every split.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) { dt.randomState = seed }
}

// NewDecisionTreeClassifier creates a tree with scikit-learn defaults
// (gini, unlimited depth, min_samples_split=2, min_samples_leaf=1, all features).
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// ValidateParams reports the first invalid hyperparameter.
func (dt *DecisionTreeClassifier) ValidateParams() error {
	if _, err := criterionFunc(dt.criterion); err != nil {
		return err
	}
	if dt.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0 (0 means unlimited)", dt.maxDepth)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	}
	if dt.maxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0 (0 means all)", dt.maxFeatures)
	}
	return nil
}

// Fit builds the tree from the training data. y is an n×1 label matrix.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return dt.FitWeighted(X, y, nil)
}

// FitWeighted builds the tree with per-sample weights. A nil slice weights
// every sample 1; samples with weight 0 do not reach the tree, but their labels
// still count towards the set of classes.
func (dt *DecisionTreeClassifier) FitWeighted(X, y mat.Matrix, sampleWeight []float64) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	if err := dt.ValidateParams(); err != nil {
		return err
	}

	n, f := X.Dims()
	if n == 0 || f == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	yr, yc := y.Dims()
	if yr != n {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", n, yr, 0)
	}
	if yc != 1 {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", 1, yc, 1)
	}
	if sampleWeight != nil && len(sampleWeight) != n {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", n, len(sampleWeight), 0)
	}

	labels := make([]float64, n)
	for i := range labels {
		labels[i] = y.At(i, 0)
		if math.IsNaN(labels[i]) || math.IsInf(labels[i], 0) {
			return errors.NewValueError("DecisionTreeClassifier.Fit", "y contains NaN or infinity")
		}
	}
	classes := uniqueSorted(labels)
	yIdx := make([]int, n)
	for i, v := range labels {
		yIdx[i] = sort.SearchFloat64s(classes, v)
	}

	cols := make([][]float64, f)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
		for _, v := range cols[j] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewValueError("DecisionTreeClassifier.Fit", "X contains NaN or infinity")
			}
		}
	}

	weights := make([]float64, n)
	samples := make([]int, 0, n)
	for i := range weights {
		weights[i] = 1
		if sampleWeight != nil {
			weights[i] = sampleWeight[i]
		}
		if weights[i] < 0 || math.IsNaN(weights[i]) {
			return errors.NewValueError("DecisionTreeClassifier.Fit", "sample weights must be non-negative")
		}
		if weights[i] > 0 {
			samples = append(samples, i)
		}
	}
	if len(samples) == 0 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "sample weights sum to zero")
	}

	crit, _ := criterionFunc(dt.criterion)
	maxFeatures := dt.maxFeatures
	if maxFeatures == 0 || maxFeatures > f {
		maxFeatures = f
	}

	b := &builder{
		cols:        cols,
		y:           yIdx,
		w:           weights,
		nClasses:    len(classes),
		impurity:    crit,
		maxDepth:    dt.maxDepth,
		minSplit:    dt.minSamplesSplit,
		minLeaf:     dt.minSamplesLeaf,
		maxFeatures: maxFeatures,
		rng:         rand.New(rand.NewPCG(uint64(dt.randomState), 0x9e3779b97f4a7c15)),
		tree:        &Tree{NClasses: len(classes)},
		importances: make([]float64, f),
		order:       make([]int, f),
		pairs:       make([]valueIndex, 0, len(samples)),
	}
	for j := range b.order {
		b.order[j] = j
	}
	b.buildNode(samples, -1, 0)

	dt.Reset()
	dt.classes_ = classes
	dt.nClasses_ = len(classes)
	dt.tree_ = b.tree
	dt.featureImportances_ = normalize(b.importances)
	dt.SetDimensions(f)
	dt.SetFitted()
	return nil
}

// PredictProba returns class probabilities with columns ordered as Classes().
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !dt.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", "PredictProba")
	}
	n, f := X.Dims()
	if f != dt.NFeatures {
		return nil, errors.NewDimensionError("DecisionTreeClassifier.PredictProba", dt.NFeatures, f, 1)
	}

	out := mat.NewDense(n, dt.nClasses_, nil)
	row := make([]float64, f)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		out.SetRow(i, dt.tree_.Apply(row).Value)
	}
	return out, nil
}

// Predict returns the most probable class label for each sample as an n×1 matrix.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !dt.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", "Predict")
	}
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return ArgmaxLabels(proba, dt.classes_), nil
}

// LeafValue returns the class distribution of the leaf reached by row.
// The returned slice must not be modified.
func (dt *DecisionTreeClassifier) LeafValue(row []float64) []float64 {
	return dt.tree_.Apply(row).Value
}

// Score returns the mean accuracy on the given data. It returns 0 when the
// model cannot predict X.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	n, _ := y.Dims()
	if n == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

// Classes returns the sorted class labels seen during fitting.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), dt.classes_...)
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.MaxDepth
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.NumLeaves
}

// GetTree returns the fitted node structure.
func (dt *DecisionTreeClassifier) GetTree() *Tree {
	return dt.tree_
}

// GetFeatureImportances returns the normalized total impurity decrease
// contributed by each feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances_...)
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

// SetParams updates hyperparameters and discards any fitted state.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	next := *dt
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			next.criterion, err = model.ParamString(key, value)
		case "max_depth":
			next.maxDepth, err = model.ParamInt(key, value, true)
		case "min_samples_split":
			next.minSamplesSplit, err = model.ParamInt(key, value, false)
		case "min_samples_leaf":
			next.minSamplesLeaf, err = model.ParamInt(key, value, false)
		case "max_features":
			next.maxFeatures, err = model.ParamInt(key, value, true)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value, false)
			next.randomState = int64(seed)
		default:
			err = errors.NewValidationError(key, "unknown parameter for DecisionTreeClassifier", value)
		}
		if err != nil {
			return err
		}
	}
	if err := next.ValidateParams(); err != nil {
		return err
	}
	*dt = *NewDecisionTreeClassifier(
		WithCriterion(next.criterion),
		WithMaxDepth(next.maxDepth),
		WithMinSamplesSplit(next.minSamplesSplit),
		WithMinSamplesLeaf(next.minSamplesLeaf),
		WithMaxFeatures(next.maxFeatures),
		WithRandomState(next.randomState),
	)
	return nil
}

// Clone returns an unfitted tree with the same hyperparameters.
func (dt *DecisionTreeClassifier) Clone() model.Classifier {
	return NewDecisionTreeClassifier(
		WithCriterion(dt.criterion),
		WithMaxDepth(dt.maxDepth),
		WithMinSamplesSplit(dt.minSamplesSplit),
		WithMinSamplesLeaf(dt.minSamplesLeaf),
		WithMaxFeatures(dt.maxFeatures),
		WithRandomState(dt.randomState),
	)
}

// String returns a readable summary of the tree.
func (dt *DecisionTreeClassifier) String() string {
	if !dt.IsFitted() {
		return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, max_depth=%d)", dt.criterion, dt.maxDepth)
	}
	return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, max_depth=%d, depth=%d, leaves=%d)",
		dt.criterion, dt.maxDepth, dt.GetDepth(), dt.GetNLeaves())
}

// ArgmaxLabels maps each probability row to the label of its most probable
// class. Ties go to the first class.
func ArgmaxLabels(proba mat.Matrix, classes []float64) *mat.Dense {
	n, c := proba.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		for j := 1; j < c; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, classes[best])
	}
	return out
}

func uniqueSorted(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return slices.Compact(out)
}

func normalize(values []float64) []float64 {
	out := append([]float64(nil), values...)
	var sum float64
	for _, v := range out {
		sum += v
	}
	if sum <= 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
