package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// logLossEps は対数損失で確率をクリップする幅
const logLossEps = 1e-15

// ROC はROC曲線の点列
type ROC struct {
	FPR        []float64
	TPR        []float64
	Thresholds []float64 // スコアがこの値以上を陽性とみなす
}

// Calibration は確率の較正曲線。空のビンは含まない
type Calibration struct {
	MeanPredicted []float64 // ビン内の予測確率の平均
	FractionTrue  []float64 // ビン内の陽性の割合
	Counts        []int
}

// checkPair は2つのベクトルが空でなく同じ長さであることを確認する
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// checkBinary はラベルが0か1のみであることを確認する
func checkBinary(op string, yTrue *mat.VecDense) (pos, neg int, err error) {
	for i := 0; i < yTrue.Len(); i++ {
		switch yTrue.AtVec(i) {
		case 1:
			pos++
		case 0:
			neg++
		default:
			return 0, 0, errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return pos, neg, nil
}

// checkProbabilities は予測値が[0,1]の範囲にあることを確認する
func checkProbabilities(op string, yPred *mat.VecDense) error {
	for i := 0; i < yPred.Len(); i++ {
		p := yPred.AtVec(i)
		if math.IsNaN(p) || p < 0 || p > 1 {
			return errors.NewValueError(op, "probabilities must be in [0, 1]")
		}
	}
	return nil
}

// ROCCurve はROC曲線を計算する。yPredは陽性クラスのスコア
func ROCCurve(yTrue, yPred *mat.VecDense) (*ROC, error) {
	n, err := checkPair("ROCCurve", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	pos, neg, err := checkBinary("ROCCurve", yTrue)
	if err != nil {
		return nil, err
	}
	if pos == 0 || neg == 0 {
		return nil, errors.NewValueError("ROCCurve", "only one class present in yTrue")
	}

	scores := make([]float64, n)
	classes := make([]bool, n)
	for i := 0; i < n; i++ {
		scores[i] = yPred.AtVec(i)
		classes[i] = yTrue.AtVec(i) == 1
	}
	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, thresh := stat.ROC(nil, scores, classes, nil)
	return &ROC{FPR: fpr, TPR: tpr, Thresholds: thresh}, nil
}

// AUC はROC曲線下の面積を計算する
//
// 同順位のスコアは台形で補間されるため、平均順位によるAUCと一致する。
// yTrueが単一クラスの場合は定義できないため、UndefinedMetricWarningを出して0.5を返す
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := checkPair("AUC", yTrue, yPred); err != nil {
		return 0, err
	}
	pos, neg, err := checkBinary("AUC", yTrue)
	if err != nil {
		return 0, err
	}
	if pos == 0 || neg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present in yTrue", 0.5))
		return 0.5, nil
	}

	roc, err := ROCCurve(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return integrate.Trapezoidal(roc.FPR, roc.TPR), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する。先頭列を使う
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := firstColumns("AUCMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return AUC(t, p)
}

// BinaryLogLoss は二値分類の対数損失を計算する
//
// 確率は [eps, 1-eps] (eps=1e-15) にクリップしてから対数を取る
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if _, _, err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}
	if err := checkProbabilities("BinaryLogLoss", yPred); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), logLossEps, 1-logLossEps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// BrierScore は予測確率と実際のラベルの平均二乗誤差を計算する
func BrierScore(yTrue, yPred *mat.VecDense) (float64, error) {
	if _, err := checkPair("BrierScore", yTrue, yPred); err != nil {
		return 0, err
	}
	if _, _, err := checkBinary("BrierScore", yTrue); err != nil {
		return 0, err
	}
	if err := checkProbabilities("BrierScore", yPred); err != nil {
		return 0, err
	}
	return MSE(yTrue, yPred)
}

// Accuracy は正解率を計算する。多クラスにも使える
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// CalibrationCurve は予測確率を[0,1]の等幅nBins個のビンに分け、
// ビンごとの平均予測確率と陽性率を返す。ビンの境界値は下側のビンに入る
func CalibrationCurve(yTrue, yPred *mat.VecDense, nBins int) (*Calibration, error) {
	n, err := checkPair("CalibrationCurve", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if nBins < 1 {
		return nil, errors.NewValidationError("n_bins", "must be >= 1", nBins)
	}
	if _, _, err := checkBinary("CalibrationCurve", yTrue); err != nil {
		return nil, err
	}
	if err := checkProbabilities("CalibrationCurve", yPred); err != nil {
		return nil, err
	}

	edges := floats.Span(make([]float64, nBins+1), 0, 1)
	inner := edges[1:nBins]
	sumPred := make([]float64, nBins)
	sumTrue := make([]float64, nBins)
	counts := make([]int, nBins)
	for i := 0; i < n; i++ {
		p := yPred.AtVec(i)
		bin := sort.SearchFloat64s(inner, p)
		sumPred[bin] += p
		sumTrue[bin] += yTrue.AtVec(i)
		counts[bin]++
	}

	out := &Calibration{}
	for b := 0; b < nBins; b++ {
		if counts[b] == 0 {
			continue
		}
		c := float64(counts[b])
		out.MeanPredicted = append(out.MeanPredicted, sumPred[b]/c)
		out.FractionTrue = append(out.FractionTrue, sumTrue[b]/c)
		out.Counts = append(out.Counts, counts[b])
	}
	return out, nil
}

// firstColumns は行列の先頭列をベクトルとして取り出す
func firstColumns(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "nil matrix")
	}
	rt, ct := yTrue.Dims()
	rp, cp := yPred.Dims()
	if rt == 0 || ct == 0 || rp == 0 || cp == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if rt != rp {
		return nil, nil, errors.NewDimensionError(op, rt, rp, 0)
	}
	return mat.NewVecDense(rt, mat.Col(nil, 0, yTrue)), mat.NewVecDense(rp, mat.Col(nil, 0, yPred)), nil
}
