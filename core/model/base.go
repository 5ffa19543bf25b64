package model

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// BaseEstimator は全てのモデルの基底となる構造体
//
// gobでエンコードできるようにフィールドは公開している。
type BaseEstimator struct {
	State EstimatorState

	// NFeatures は学習時に観測した特徴量の数
	NFeatures int
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted はモデルを学習済み状態に設定する
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// SetDimensions は学習時の特徴量数を記録する
func (e *BaseEstimator) SetDimensions(nFeatures int) {
	e.NFeatures = nFeatures
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
	e.NFeatures = 0
}
