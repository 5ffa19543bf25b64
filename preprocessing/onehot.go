package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/core/model"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// 未知カテゴリの扱い
const (
	HandleUnknownIgnore = "ignore"
	HandleUnknownError  = "error"
)

// OneHotEncoder はカテゴリ列を指示変数（0/1）の列に展開する
type OneHotEncoder struct {
	model.BaseEstimator

	// HandleUnknown は学習時に存在しなかったカテゴリの扱い (ignore, error)
	// ignore の場合はその列のブロックを全て0にする
	HandleUnknown string

	// Categories は列ごとのソート済みカテゴリ
	Categories [][]string

	// Offsets は列ごとの出力開始位置
	Offsets []int

	// NOutputs は出力列数
	NOutputs int
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
func NewOneHotEncoder(handleUnknown string) *OneHotEncoder {
	return &OneHotEncoder{HandleUnknown: handleUnknown}
}

func validateHandleUnknown(v string) error {
	switch v {
	case HandleUnknownIgnore, HandleUnknownError:
		return nil
	default:
		return errors.NewValidationError("handle_unknown", "must be one of ignore, error", v)
	}
}

// Fit は各列のカテゴリ語彙を学習する
func (enc *OneHotEncoder) Fit(rows [][]string) error {
	if err := validateHandleUnknown(enc.HandleUnknown); err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	c := len(rows[0])
	enc.Categories = make([][]string, c)
	for j := 0; j < c; j++ {
		seen := make(map[string]struct{})
		for _, row := range rows {
			seen[row[j]] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		enc.Categories[j] = cats
	}

	enc.Offsets = make([]int, c)
	enc.NOutputs = 0
	for j, cats := range enc.Categories {
		enc.Offsets[j] = enc.NOutputs
		enc.NOutputs += len(cats)
	}
	enc.SetDimensions(c)
	enc.SetFitted()
	return nil
}

// lookup は列jにおけるカテゴリvの位置を返す
func (enc *OneHotEncoder) lookup(j int, v string) (int, bool) {
	cats := enc.Categories[j]
	k := sort.SearchStrings(cats, v)
	return k, k < len(cats) && cats[k] == v
}

// Transform は行を指示変数の行列に変換する
func (enc *OneHotEncoder) Transform(rows [][]string) (*mat.Dense, error) {
	if !enc.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(rows) == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "empty data", errors.ErrEmptyData)
	}

	out := mat.NewDense(len(rows), enc.NOutputs, nil)
	for i, row := range rows {
		if len(row) != enc.NFeatures {
			return nil, errors.NewDimensionError("OneHotEncoder.Transform", enc.NFeatures, len(row), 1)
		}
		for j, v := range row {
			k, ok := enc.lookup(j, v)
			if !ok {
				if enc.HandleUnknown == HandleUnknownError {
					return nil, errors.NewValueError("OneHotEncoder.Transform",
						fmt.Sprintf("found unknown category %q in column %d during transform", v, j))
				}
				continue
			}
			out.Set(i, enc.Offsets[j]+k, 1)
		}
	}
	return out, nil
}

// FitTransform は学習と変換を同時に実行する
func (enc *OneHotEncoder) FitTransform(rows [][]string) (*mat.Dense, error) {
	if err := enc.Fit(rows); err != nil {
		return nil, err
	}
	return enc.Transform(rows)
}

// FeatureNames は出力列の名前を <列名>_<カテゴリ> の形式で返す
func (enc *OneHotEncoder) FeatureNames(columns []string) []string {
	names := make([]string, 0, enc.NOutputs)
	for j, cats := range enc.Categories {
		for _, v := range cats {
			names = append(names, fmt.Sprintf("%s_%s", columns[j], v))
		}
	}
	return names
}

// GetParams はパラメータを取得する
func (enc *OneHotEncoder) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"handle_unknown": enc.HandleUnknown,
	}
}
