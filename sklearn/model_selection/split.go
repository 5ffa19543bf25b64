// Package model_selection provides data splitters, parameter grids, scorers
// and an exhaustive grid search with cross-validation.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// splitStream is the PCG stream used by the seeded splitters.
const splitStream = 0x853c49e6748fea9b

// TrainTestSplit partitions sample indices into a train and a test set.
// The test set holds ceil(testSize*n) samples. With stratify, every class
// contributes to the test set in proportion to its size (largest remainder
// rounding) and samples are drawn at random within each class. The same seed
// always gives the same partition. Both index slices are in shuffled order.
func TrainTestSplit(y []float64, testSize float64, seed uint64, stratify bool) (train, test []int, err error) {
	n := len(y)
	if n == 0 {
		return nil, nil, errors.NewModelError("TrainTestSplit", "empty data", errors.ErrEmptyData)
	}
	if !(testSize > 0 && testSize < 1) {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTrain < 1 || nTest < 1 {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"test_size leaves one of the partitions empty")
	}

	rng := rand.New(rand.NewPCG(seed, splitStream))
	if !stratify {
		perm := rng.Perm(n)
		return perm[nTest:], perm[:nTest], nil
	}

	classes, members := groupByClass(y)
	if len(classes) < 2 {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"the least populated class has fewer than 2 members or only one class is present")
	}
	counts := make([]int, len(classes))
	for k, idx := range members {
		counts[k] = len(idx)
		if counts[k] < 2 {
			return nil, nil, errors.NewValueError("TrainTestSplit",
				"the least populated class in y has only 1 member, which is too few; each class needs at least 2")
		}
	}
	if nTest < len(classes) || nTrain < len(classes) {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"each partition must be at least as large as the number of classes")
	}

	alloc := largestRemainder(counts, nTest)
	train = make([]int, 0, nTrain)
	test = make([]int, 0, nTest)
	for k, idx := range members {
		perm := append([]int(nil), idx...)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		test = append(test, perm[:alloc[k]]...)
		train = append(train, perm[alloc[k]:]...)
	}
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// groupByClass returns the sorted distinct labels and, per label, the sample
// indices in ascending order.
func groupByClass(y []float64) ([]float64, [][]int) {
	byLabel := make(map[float64][]int)
	for i, v := range y {
		byLabel[v] = append(byLabel[v], i)
	}
	classes := make([]float64, 0, len(byLabel))
	for c := range byLabel {
		classes = append(classes, c)
	}
	sort.Float64s(classes)
	members := make([][]int, len(classes))
	for k, c := range classes {
		members[k] = byLabel[c]
	}
	return classes, members
}

// largestRemainder distributes total across classes proportionally to counts.
// Leftover units go to the largest fractional parts, earlier classes first on
// ties, and no class receives more than its count.
func largestRemainder(counts []int, total int) []int {
	n := 0
	for _, c := range counts {
		n += c
	}
	alloc := make([]int, len(counts))
	rem := make([]float64, len(counts))
	assigned := 0
	for k, c := range counts {
		exact := float64(c) * float64(total) / float64(n)
		alloc[k] = int(math.Floor(exact))
		rem[k] = exact - float64(alloc[k])
		assigned += alloc[k]
	}

	order := make([]int, len(counts))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool { return rem[order[a]] > rem[order[b]] })
	for left := total - assigned; left > 0; {
		progressed := false
		for _, k := range order {
			if left == 0 {
				break
			}
			if alloc[k] < counts[k] {
				alloc[k]++
				left--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return alloc
}
