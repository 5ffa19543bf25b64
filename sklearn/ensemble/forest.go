// Package ensemble implements bagged tree ensembles.
package ensemble

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/core/model"
	"github.com/YuminosukeSato/swingprob/core/parallel"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/sklearn/tree"
)

func init() {
	// Pipelines store the forest behind model.Classifier.
	gob.Register(&RandomForestClassifier{})
	gob.Register(&tree.DecisionTreeClassifier{})
}

// Supported max_features modes.
const (
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
	MaxFeaturesAll  = "all"
)

// predictParallelThreshold is the number of rows above which PredictProba
// splits rows across workers.
const predictParallelThreshold = 512

// seedStream is the PCG stream used for the forest seed sequence.
const seedStream = 0xda3e39cb94b95bdb

// RandomForestClassifier averages the class probabilities of decision trees
// grown on bootstrap samples with a random feature subset per split.
type RandomForestClassifier struct {
	model.BaseEstimator

	nEstimators     int
	criterion       string
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeaturesMode string // sqrt, log2 or all; empty when maxFeaturesN is used
	maxFeaturesN    int
	bootstrap       bool
	randomState     int64
	nJobs           int

	classes_            []float64
	estimators_         []*tree.DecisionTreeClassifier
	featureImportances_ []float64
}

// Option configures a RandomForestClassifier.
type Option func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

// WithCriterion sets the split criterion of every tree.
func WithCriterion(criterion string) Option {
	return func(rf *RandomForestClassifier) { rf.criterion = criterion }
}

// WithMaxDepth limits tree depth. 0 grows trees until leaves are pure.
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithMaxFeatures selects the features considered per split by mode
// (MaxFeaturesSqrt, MaxFeaturesLog2 or MaxFeaturesAll).
func WithMaxFeatures(mode string) Option {
	return func(rf *RandomForestClassifier) {
		rf.maxFeaturesMode = mode
		rf.maxFeaturesN = 0
	}
}

// WithMaxFeaturesN considers exactly n features per split.
func WithMaxFeaturesN(n int) Option {
	return func(rf *RandomForestClassifier) {
		rf.maxFeaturesMode = ""
		rf.maxFeaturesN = n
	}
}

// WithBootstrap toggles bootstrap sampling. Without it every tree sees the
// whole training set.
func WithBootstrap(b bool) Option {
	return func(rf *RandomForestClassifier) { rf.bootstrap = b }
}

// WithRandomState seeds tree construction.
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestClassifier) { rf.randomState = seed }
}

// WithNJobs sets the number of trees fitted concurrently (<= 0 uses all cores).
func WithNJobs(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nJobs = n }
}

// NewRandomForestClassifier creates a forest with scikit-learn defaults:
// 100 trees, gini, unlimited depth, max_features=sqrt and bootstrap sampling.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		nEstimators:     100,
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeaturesMode: MaxFeaturesSqrt,
		bootstrap:       true,
		nJobs:           1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

func (rf *RandomForestClassifier) validateParams() error {
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.nEstimators)
	}
	switch rf.maxFeaturesMode {
	case MaxFeaturesSqrt, MaxFeaturesLog2, MaxFeaturesAll:
	case "":
		if rf.maxFeaturesN < 1 {
			return errors.NewValidationError("max_features", "must be >= 1", rf.maxFeaturesN)
		}
	default:
		return errors.NewValidationError("max_features", "must be sqrt, log2, all or a positive integer", rf.maxFeaturesMode)
	}
	// tree-level parameters are checked by an unfitted template tree
	return tree.NewDecisionTreeClassifier(rf.treeOptions(0, 0)...).ValidateParams()
}

// resolveMaxFeatures returns the number of features drawn per split.
func (rf *RandomForestClassifier) resolveMaxFeatures(nFeatures int) int {
	var k int
	switch rf.maxFeaturesMode {
	case MaxFeaturesSqrt:
		k = int(math.Sqrt(float64(nFeatures)))
	case MaxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	case MaxFeaturesAll:
		k = nFeatures
	default:
		k = rf.maxFeaturesN
	}
	return max(1, min(k, nFeatures))
}

func (rf *RandomForestClassifier) treeOptions(maxFeatures int, seed int64) []tree.Option {
	return []tree.Option{
		tree.WithCriterion(rf.criterion),
		tree.WithMaxDepth(rf.maxDepth),
		tree.WithMinSamplesSplit(rf.minSamplesSplit),
		tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
		tree.WithMaxFeatures(maxFeatures),
		tree.WithRandomState(seed),
	}
}

// Fit grows the forest. y is an n×1 label matrix.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	if err := rf.validateParams(); err != nil {
		return err
	}
	n, f := X.Dims()
	if n == 0 || f == 0 {
		return errors.NewModelError("RandomForestClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if yr, _ := y.Dims(); yr != n {
		return errors.NewDimensionError("RandomForestClassifier.Fit", n, yr, 0)
	}

	// Seeds are drawn up front so the forest does not depend on scheduling.
	rng := rand.New(rand.NewPCG(uint64(rf.randomState), seedStream))
	seeds := make([]int64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = rng.Int64()
	}

	maxFeatures := rf.resolveMaxFeatures(f)
	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	err = parallel.ForEach(context.Background(), rf.nEstimators, rf.nJobs, func(_ context.Context, i int) error {
		var weights []float64
		if rf.bootstrap {
			weights = bootstrapWeights(n, seeds[i])
		}
		dt := tree.NewDecisionTreeClassifier(rf.treeOptions(maxFeatures, seeds[i])...)
		if err := dt.FitWeighted(X, y, weights); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		trees[i] = dt
		return nil
	})
	if err != nil {
		return err
	}

	importances := make([]float64, f)
	for _, dt := range trees {
		for j, v := range dt.GetFeatureImportances() {
			importances[j] += v / float64(len(trees))
		}
	}

	rf.Reset()
	rf.classes_ = trees[0].Classes()
	rf.estimators_ = trees
	rf.featureImportances_ = importances
	rf.SetDimensions(f)
	rf.SetFitted()
	return nil
}

// bootstrapWeights draws n indices with replacement and returns how often
// each sample was drawn.
func bootstrapWeights(n int, seed int64) []float64 {
	rng := rand.New(rand.NewPCG(uint64(seed), seedStream))
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[rng.IntN(n)]++
	}
	return weights
}

// PredictProba returns the mean class probabilities of all trees with
// columns ordered as Classes().
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}
	n, f := X.Dims()
	if f != rf.NFeatures {
		return nil, errors.NewDimensionError("RandomForestClassifier.PredictProba", rf.NFeatures, f, 1)
	}

	nClasses := len(rf.classes_)
	out := mat.NewDense(n, nClasses, nil)
	scale := 1 / float64(len(rf.estimators_))

	parallel.ParallelizeWithThreshold(n, predictParallelThreshold, rf.nJobs, func(start, end int) {
		row := make([]float64, f)
		acc := make([]float64, nClasses)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			for k := range acc {
				acc[k] = 0
			}
			for _, dt := range rf.estimators_ {
				for k, p := range dt.LeafValue(row) {
					acc[k] += p
				}
			}
			for k := range acc {
				acc[k] *= scale
			}
			out.SetRow(i, acc)
		}
	})
	return out, nil
}

// Predict returns the most probable class for each sample as an n×1 matrix.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return tree.ArgmaxLabels(proba, rf.classes_), nil
}

// Classes returns the sorted class labels seen during fitting.
func (rf *RandomForestClassifier) Classes() []float64 {
	return append([]float64(nil), rf.classes_...)
}

// Estimators returns the fitted trees.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return rf.estimators_
}

// GetFeatureImportances returns the mean impurity-based importance over trees.
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), rf.featureImportances_...)
}

// GetParams returns the hyperparameters. max_features is a string mode or an int.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	var maxFeatures interface{} = rf.maxFeaturesMode
	if rf.maxFeaturesMode == "" {
		maxFeatures = rf.maxFeaturesN
	}
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      maxFeatures,
		"bootstrap":         rf.bootstrap,
		"random_state":      rf.randomState,
		"n_jobs":            rf.nJobs,
	}
}

// SetParams updates hyperparameters and discards the fitted trees. Nothing
// changes when any value is invalid. A nil max_depth means unlimited and a
// nil max_features means all features.
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	next := rf.unfittedCopy()
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			next.nEstimators, err = model.ParamInt(key, value, false)
		case "criterion":
			next.criterion, err = model.ParamString(key, value)
		case "max_depth":
			next.maxDepth, err = model.ParamInt(key, value, true)
		case "min_samples_split":
			next.minSamplesSplit, err = model.ParamInt(key, value, false)
		case "min_samples_leaf":
			next.minSamplesLeaf, err = model.ParamInt(key, value, false)
		case "max_features":
			err = next.setMaxFeatures(value)
		case "bootstrap":
			next.bootstrap, err = model.ParamBool(key, value)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value, false)
			next.randomState = int64(seed)
		case "n_jobs":
			next.nJobs, err = model.ParamInt(key, value, false)
		default:
			err = errors.NewValidationError(key, "unknown parameter for RandomForestClassifier", value)
		}
		if err != nil {
			return err
		}
	}
	if err := next.validateParams(); err != nil {
		return err
	}
	*rf = *next
	return nil
}

func (rf *RandomForestClassifier) setMaxFeatures(value interface{}) error {
	switch v := value.(type) {
	case nil:
		rf.maxFeaturesMode, rf.maxFeaturesN = MaxFeaturesAll, 0
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			rf.maxFeaturesMode, rf.maxFeaturesN = "", n
		} else {
			rf.maxFeaturesMode, rf.maxFeaturesN = v, 0
		}
	default:
		n, err := model.ParamInt("max_features", value, false)
		if err != nil {
			return err
		}
		rf.maxFeaturesMode, rf.maxFeaturesN = "", n
	}
	return nil
}

func (rf *RandomForestClassifier) unfittedCopy() *RandomForestClassifier {
	return &RandomForestClassifier{
		nEstimators:     rf.nEstimators,
		criterion:       rf.criterion,
		maxDepth:        rf.maxDepth,
		minSamplesSplit: rf.minSamplesSplit,
		minSamplesLeaf:  rf.minSamplesLeaf,
		maxFeaturesMode: rf.maxFeaturesMode,
		maxFeaturesN:    rf.maxFeaturesN,
		bootstrap:       rf.bootstrap,
		randomState:     rf.randomState,
		nJobs:           rf.nJobs,
	}
}

// Clone returns an unfitted forest with the same hyperparameters.
func (rf *RandomForestClassifier) Clone() model.Classifier {
	return rf.unfittedCopy()
}

// String returns a readable summary of the forest.
func (rf *RandomForestClassifier) String() string {
	depth := "None"
	if rf.maxDepth > 0 {
		depth = strconv.Itoa(rf.maxDepth)
	}
	return fmt.Sprintf("RandomForestClassifier(n_estimators=%d, max_depth=%s, min_samples_split=%d, random_state=%d)",
		rf.nEstimators, depth, rf.minSamplesSplit, rf.randomState)
}
