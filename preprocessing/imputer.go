package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/swingprob/core/model"
	"github.com/YuminosukeSato/swingprob/dataset"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// 欠損値補完の戦略
const (
	StrategyMean         = "mean"
	StrategyMedian       = "median"
	StrategyMostFrequent = "most_frequent"
	StrategyConstant     = "constant"
)

// DefaultCategoricalFill は定数補完および全欠損列に使うカテゴリ値
const DefaultCategoricalFill = "missing"

var _ model.Transformer = (*SimpleImputer)(nil)

// SimpleImputer は数値列の欠損値（NaN）を列ごとの統計量で補完する
type SimpleImputer struct {
	model.BaseEstimator

	// Strategy は補完戦略 (mean, median, most_frequent, constant)
	Strategy string

	// FillValue は constant 戦略で使う値
	FillValue float64

	// Statistics は各列の補完値
	Statistics []float64
}

// NewSimpleImputer は新しいSimpleImputerを作成する
//
// 使用例:
//
//	imp := preprocessing.NewSimpleImputer(preprocessing.StrategyMean)
//	XFilled, err := imp.FitTransform(X)
func NewSimpleImputer(strategy string) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

func validateNumericStrategy(strategy string) error {
	switch strategy {
	case StrategyMean, StrategyMedian, StrategyMostFrequent, StrategyConstant:
		return nil
	default:
		return errors.NewValidationError("numeric_strategy", "must be one of mean, median, most_frequent, constant", strategy)
	}
}

// Fit は欠損値を除いた各列の統計量を学習する
// 全て欠損している列は0で補完し、DataConversionWarningを発生させる
func (imp *SimpleImputer) Fit(X mat.Matrix) error {
	if err := validateNumericStrategy(imp.Strategy); err != nil {
		return err
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}

	imp.Statistics = make([]float64, c)
	observed := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		observed = observed[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}

		if imp.Strategy == StrategyConstant {
			imp.Statistics[j] = imp.FillValue
			continue
		}
		if len(observed) == 0 {
			errors.Warn(errors.NewDataConversionWarning(
				fmt.Sprintf("all-missing column %d", j), "constant 0",
				"no observed values to compute "+imp.Strategy))
			imp.Statistics[j] = 0
			continue
		}

		switch imp.Strategy {
		case StrategyMean:
			imp.Statistics[j] = stat.Mean(observed, nil)
		case StrategyMedian:
			imp.Statistics[j] = median(observed)
		case StrategyMostFrequent:
			imp.Statistics[j] = modeFloat(observed)
		}
	}

	imp.SetDimensions(c)
	imp.SetFitted()
	return nil
}

// Transform は学習済みの補完値でNaNを置き換える
func (imp *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !imp.IsFitted() {
		return nil, errors.NewNotFittedError("SimpleImputer", "Transform")
	}
	r, c := X.Dims()
	if c != imp.NFeatures {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", imp.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return imp.Statistics[j]
		}
		return v
	}, X)
	return result, nil
}

// FitTransform は学習と変換を同時に実行する
func (imp *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := imp.Fit(X); err != nil {
		return nil, err
	}
	return imp.Transform(X)
}

// GetParams はパラメータを取得する
func (imp *SimpleImputer) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"strategy":   imp.Strategy,
		"fill_value": imp.FillValue,
	}
}

// median はソート済みコピーの中央値を返す（要素数が偶数なら中央2値の平均）
func median(x []float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// modeFloat は最頻値を返す。同数の場合は最小値
func modeFloat(x []float64) float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	best, bestCount := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > bestCount {
			best, bestCount = sorted[i], j-i
		}
		i = j
	}
	return best
}

// CategoricalImputer はカテゴリ列の欠損値（空文字）を補完する
type CategoricalImputer struct {
	model.BaseEstimator

	// Strategy は補完戦略 (most_frequent, constant)
	Strategy string

	// FillValue は constant 戦略および全欠損列で使う値
	FillValue string

	// Statistics は各列の補完値
	Statistics []string
}

// NewCategoricalImputer は新しいCategoricalImputerを作成する
func NewCategoricalImputer(strategy string) *CategoricalImputer {
	return &CategoricalImputer{Strategy: strategy, FillValue: DefaultCategoricalFill}
}

func validateCategoricalStrategy(strategy string) error {
	switch strategy {
	case StrategyMostFrequent, StrategyConstant:
		return nil
	default:
		return errors.NewValidationError("categorical_strategy", "must be one of most_frequent, constant", strategy)
	}
}

// Fit は各列の最頻値を学習する。同数の場合は辞書順で最小の値を選ぶ
func (imp *CategoricalImputer) Fit(rows [][]string) error {
	if err := validateCategoricalStrategy(imp.Strategy); err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.NewModelError("CategoricalImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	fill := imp.FillValue
	if fill == "" {
		fill = DefaultCategoricalFill
	}

	c := len(rows[0])
	imp.Statistics = make([]string, c)
	for j := 0; j < c; j++ {
		if imp.Strategy == StrategyConstant {
			imp.Statistics[j] = fill
			continue
		}

		counts := make(map[string]int)
		for _, row := range rows {
			if v := row[j]; v != dataset.Missing {
				counts[v]++
			}
		}
		if len(counts) == 0 {
			errors.Warn(errors.NewDataConversionWarning(
				fmt.Sprintf("all-missing categorical column %d", j),
				fmt.Sprintf("constant %q", fill),
				"no observed values to compute most_frequent"))
			imp.Statistics[j] = fill
			continue
		}

		best, bestCount := "", 0
		for v, n := range counts {
			if n > bestCount || (n == bestCount && v < best) {
				best, bestCount = v, n
			}
		}
		imp.Statistics[j] = best
	}

	imp.SetDimensions(c)
	imp.SetFitted()
	return nil
}

// Transform は欠損セルを学習済みの値で置き換えた新しい行を返す
func (imp *CategoricalImputer) Transform(rows [][]string) ([][]string, error) {
	if !imp.IsFitted() {
		return nil, errors.NewNotFittedError("CategoricalImputer", "Transform")
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) != imp.NFeatures {
			return nil, errors.NewDimensionError("CategoricalImputer.Transform", imp.NFeatures, len(row), 1)
		}
		filled := make([]string, len(row))
		for j, v := range row {
			if v == dataset.Missing {
				v = imp.Statistics[j]
			}
			filled[j] = v
		}
		out[i] = filled
	}
	return out, nil
}

// FitTransform は学習と変換を同時に実行する
func (imp *CategoricalImputer) FitTransform(rows [][]string) ([][]string, error) {
	if err := imp.Fit(rows); err != nil {
		return nil, err
	}
	return imp.Transform(rows)
}

// GetParams はパラメータを取得する
func (imp *CategoricalImputer) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"strategy":   imp.Strategy,
		"fill_value": imp.FillValue,
	}
}
