package model_selection

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// Splitter generates cross-validation folds over sample labels.
type Splitter interface {
	Split(y []float64) ([]CVFold, error)
	GetNSplits() int
}

// CVFold represents a single fold in cross-validation
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold. The first n % k folds
// receive one extra sample.
func (kf *KFold) Split(y []float64) ([]CVFold, error) {
	n := len(y)
	if err := checkSplits(kf.NSplits, n); err != nil {
		return nil, err
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.RandomSeed, splitStream))
		r.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	}

	testFold := make([]int, n)
	foldSize, remainder := n/kf.NSplits, n%kf.NSplits
	current := 0
	for f := 0; f < kf.NSplits; f++ {
		size := foldSize
		if f < remainder {
			size++
		}
		for _, idx := range indices[current : current+size] {
			testFold[idx] = f
		}
		current += size
	}
	return foldsFromAssignment(testFold, kf.NSplits), nil
}

// StratifiedKFold implements stratified k-fold cross-validation
//
// Without shuffling the folds match scikit-learn's StratifiedKFold: classes
// are ordered by first appearance, fold sizes per class come from dealing the
// label-sorted samples round robin, and each class fills its folds in index
// order.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified train/test indices for each fold. A class with
// fewer members than folds triggers a warning; an error is returned when every
// class is smaller than the number of folds.
func (skf *StratifiedKFold) Split(y []float64) ([]CVFold, error) {
	n := len(y)
	if err := checkSplits(skf.NSplits, n); err != nil {
		return nil, err
	}

	// encode labels by order of first appearance
	code := make(map[float64]int)
	encoded := make([]int, n)
	var counts []int
	for i, v := range y {
		k, ok := code[v]
		if !ok {
			k = len(counts)
			code[v] = k
			counts = append(counts, 0)
		}
		encoded[i] = k
		counts[k]++
	}

	minCount, maxCount := slices.Min(counts), slices.Max(counts)
	if maxCount < skf.NSplits {
		return nil, errors.NewValueError("StratifiedKFold.Split",
			fmt.Sprintf("n_splits=%d cannot be greater than the number of members in each class", skf.NSplits))
	}
	if minCount < skf.NSplits {
		errors.Warn(errors.NewSplitWarning("StratifiedKFold",
			fmt.Sprintf("the least populated class in y has only %d members, which is less than n_splits=%d", minCount, skf.NSplits)))
	}

	// allocation[f][k]: test samples of class k in fold f
	sorted := slices.Clone(encoded)
	slices.Sort(sorted)
	allocation := make([][]int, skf.NSplits)
	for f := range allocation {
		allocation[f] = make([]int, len(counts))
		for i := f; i < n; i += skf.NSplits {
			allocation[f][sorted[i]]++
		}
	}

	var r *rand.Rand
	if skf.Shuffle {
		r = rand.New(rand.NewPCG(skf.RandomSeed, splitStream))
	}
	testFold := make([]int, n)
	for k := range counts {
		folds := make([]int, 0, counts[k])
		for f := 0; f < skf.NSplits; f++ {
			for c := 0; c < allocation[f][k]; c++ {
				folds = append(folds, f)
			}
		}
		if r != nil {
			r.Shuffle(len(folds), func(i, j int) { folds[i], folds[j] = folds[j], folds[i] })
		}
		next := 0
		for i, e := range encoded {
			if e == k {
				testFold[i] = folds[next]
				next++
			}
		}
	}
	return foldsFromAssignment(testFold, skf.NSplits), nil
}

func checkSplits(nSplits, n int) error {
	if nSplits < 2 {
		return errors.NewValidationError("n_splits", "must be >= 2", nSplits)
	}
	if nSplits > n {
		return errors.NewValueError("Split",
			fmt.Sprintf("cannot have n_splits=%d greater than the number of samples n=%d", nSplits, n))
	}
	return nil
}

// foldsFromAssignment builds folds from the test fold of every sample. Both
// index lists of every fold are in ascending order.
func foldsFromAssignment(testFold []int, nSplits int) []CVFold {
	folds := make([]CVFold, nSplits)
	for i, f := range testFold {
		for g := range folds {
			if g == f {
				folds[g].TestIndices = append(folds[g].TestIndices, i)
			} else {
				folds[g].TrainIndices = append(folds[g].TrainIndices, i)
			}
		}
	}
	return folds
}
