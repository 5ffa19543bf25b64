package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/core/model"
	"github.com/YuminosukeSato/swingprob/dataset"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// ColumnTransformer は数値列とカテゴリ列にそれぞれの前処理を適用し、結果を連結する
//
// 出力は [数値ブロック（補完→標準化）, カテゴリブロック（補完→One-Hot）] の順。
type ColumnTransformer struct {
	model.BaseEstimator

	NumericStrategy     string
	CategoricalStrategy string
	HandleUnknown       string

	// 学習済みの構成要素
	NumericImputer     *SimpleImputer
	Scaler             *StandardScaler
	CategoricalImputer *CategoricalImputer
	Encoder            *OneHotEncoder

	// NumericColumns と CategoricalColumns は学習時の列名
	NumericColumns     []string
	CategoricalColumns []string
}

// ColumnTransformerOption はColumnTransformerの設定関数
type ColumnTransformerOption func(*ColumnTransformer)

// WithNumericStrategy は数値列の補完戦略を設定する
func WithNumericStrategy(strategy string) ColumnTransformerOption {
	return func(ct *ColumnTransformer) { ct.NumericStrategy = strategy }
}

// WithCategoricalStrategy はカテゴリ列の補完戦略を設定する
func WithCategoricalStrategy(strategy string) ColumnTransformerOption {
	return func(ct *ColumnTransformer) { ct.CategoricalStrategy = strategy }
}

// WithHandleUnknown は未知カテゴリの扱いを設定する
func WithHandleUnknown(v string) ColumnTransformerOption {
	return func(ct *ColumnTransformer) { ct.HandleUnknown = v }
}

// NewColumnTransformer は新しいColumnTransformerを作成する
//
// デフォルト: 数値は平均補完、カテゴリは最頻値補完、未知カテゴリは無視
//
//	ct := preprocessing.NewColumnTransformer()
//	X, err := ct.FitTransform(frame)
func NewColumnTransformer(opts ...ColumnTransformerOption) *ColumnTransformer {
	ct := &ColumnTransformer{
		NumericStrategy:     StrategyMean,
		CategoricalStrategy: StrategyMostFrequent,
		HandleUnknown:       HandleUnknownIgnore,
	}
	for _, opt := range opts {
		opt(ct)
	}
	return ct
}

// Fit は各列グループの前処理を学習する
func (ct *ColumnTransformer) Fit(f *dataset.Frame) (err error) {
	defer errors.Recover(&err, "ColumnTransformer.Fit")

	if err := ct.validate(); err != nil {
		return err
	}
	if f == nil || f.Len() == 0 {
		return errors.NewModelError("ColumnTransformer.Fit", "empty data", errors.ErrEmptyData)
	}

	ct.Reset()
	ct.NumericColumns = append([]string(nil), f.Schema.Numeric...)
	ct.CategoricalColumns = append([]string(nil), f.Schema.Categorical...)
	ct.NumericImputer, ct.Scaler, ct.CategoricalImputer, ct.Encoder = nil, nil, nil, nil

	if len(ct.NumericColumns) > 0 {
		ct.NumericImputer = NewSimpleImputer(ct.NumericStrategy)
		filled, err := ct.NumericImputer.FitTransform(f.Numeric)
		if err != nil {
			return errors.Wrap(err, "numeric imputer")
		}
		ct.Scaler = NewStandardScalerDefault()
		if err := ct.Scaler.Fit(filled); err != nil {
			return errors.Wrap(err, "standard scaler")
		}
	}

	if len(ct.CategoricalColumns) > 0 {
		ct.CategoricalImputer = NewCategoricalImputer(ct.CategoricalStrategy)
		filled, err := ct.CategoricalImputer.FitTransform(f.Categorical)
		if err != nil {
			return errors.Wrap(err, "categorical imputer")
		}
		ct.Encoder = NewOneHotEncoder(ct.HandleUnknown)
		if err := ct.Encoder.Fit(filled); err != nil {
			return errors.Wrap(err, "one-hot encoder")
		}
	}

	ct.SetDimensions(len(ct.NumericColumns) + len(ct.CategoricalColumns))
	ct.SetFitted()
	return nil
}

// Transform は学習済みの前処理を適用する。入力は変更しない
func (ct *ColumnTransformer) Transform(f *dataset.Frame) (*mat.Dense, error) {
	if !ct.IsFitted() {
		return nil, errors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	if f == nil || f.Len() == 0 {
		return nil, errors.NewModelError("ColumnTransformer.Transform", "empty data", errors.ErrEmptyData)
	}
	if got := len(f.Schema.Numeric); got != len(ct.NumericColumns) {
		return nil, errors.NewDimensionError("ColumnTransformer.Transform", len(ct.NumericColumns), got, 1)
	}
	if got := len(f.Schema.Categorical); got != len(ct.CategoricalColumns) {
		return nil, errors.NewDimensionError("ColumnTransformer.Transform", len(ct.CategoricalColumns), got, 1)
	}

	n := f.Len()
	var blocks []mat.Matrix

	if ct.Scaler != nil {
		filled, err := ct.NumericImputer.Transform(f.Numeric)
		if err != nil {
			return nil, err
		}
		scaled, err := ct.Scaler.Transform(filled)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, scaled)
	}

	if ct.Encoder != nil {
		filled, err := ct.CategoricalImputer.Transform(f.Categorical)
		if err != nil {
			return nil, err
		}
		encoded, err := ct.Encoder.Transform(filled)
		if err != nil {
			return nil, err
		}
		if ct.Encoder.NOutputs > 0 {
			blocks = append(blocks, encoded)
		}
	}

	width := 0
	for _, b := range blocks {
		_, c := b.Dims()
		width += c
	}
	if width == 0 {
		return nil, errors.NewValueError("ColumnTransformer.Transform", "no output features")
	}

	out := mat.NewDense(n, width, nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		out.Slice(0, n, offset, offset+c).(*mat.Dense).Copy(b)
		offset += c
	}
	return out, nil
}

// FitTransform は学習と変換を同時に実行する
func (ct *ColumnTransformer) FitTransform(f *dataset.Frame) (*mat.Dense, error) {
	if err := ct.Fit(f); err != nil {
		return nil, err
	}
	return ct.Transform(f)
}

// FeatureNamesOut は出力列の名前を返す（num__<列名>, cat__<列名>_<カテゴリ>）
func (ct *ColumnTransformer) FeatureNamesOut() []string {
	if !ct.IsFitted() {
		return nil
	}
	names := make([]string, 0, len(ct.NumericColumns))
	for _, c := range ct.NumericColumns {
		names = append(names, "num__"+c)
	}
	if ct.Encoder != nil {
		for _, c := range ct.Encoder.FeatureNames(ct.CategoricalColumns) {
			names = append(names, "cat__"+c)
		}
	}
	return names
}

// GetParams はパラメータを取得する
func (ct *ColumnTransformer) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"numeric_strategy":     ct.NumericStrategy,
		"categorical_strategy": ct.CategoricalStrategy,
		"handle_unknown":       ct.HandleUnknown,
	}
}

// SetParams はパラメータを設定する。学習済みの状態はリセットされる
// 不正な値が含まれる場合は何も変更しない
func (ct *ColumnTransformer) SetParams(params map[string]interface{}) error {
	next := ct.Clone()
	for key, value := range params {
		s, err := model.ParamString(key, value)
		if err != nil {
			return err
		}
		switch key {
		case "numeric_strategy":
			next.NumericStrategy = s
		case "categorical_strategy":
			next.CategoricalStrategy = s
		case "handle_unknown":
			next.HandleUnknown = s
		default:
			return errors.NewValidationError(key, "unknown parameter for ColumnTransformer", value)
		}
	}
	if err := next.validate(); err != nil {
		return err
	}
	*ct = *next
	return nil
}

// Clone は同じパラメータを持つ未学習のコピーを返す
func (ct *ColumnTransformer) Clone() *ColumnTransformer {
	return NewColumnTransformer(
		WithNumericStrategy(ct.NumericStrategy),
		WithCategoricalStrategy(ct.CategoricalStrategy),
		WithHandleUnknown(ct.HandleUnknown),
	)
}

func (ct *ColumnTransformer) validate() error {
	if err := validateNumericStrategy(ct.NumericStrategy); err != nil {
		return err
	}
	if err := validateCategoricalStrategy(ct.CategoricalStrategy); err != nil {
		return err
	}
	return validateHandleUnknown(ct.HandleUnknown)
}

// String は文字列表現を返す
func (ct *ColumnTransformer) String() string {
	return fmt.Sprintf("ColumnTransformer(numeric=[SimpleImputer(%s), StandardScaler], categorical=[SimpleImputer(%s), OneHotEncoder(handle_unknown=%s)])",
		ct.NumericStrategy, ct.CategoricalStrategy, ct.HandleUnknown)
}
