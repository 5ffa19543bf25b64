package model_selection

import (
	"slices"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/metrics"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// Scorer names. Every scorer is oriented so that higher is better.
const (
	ScoringNegLogLoss    = "neg_log_loss"
	ScoringROCAUC        = "roc_auc"
	ScoringNegBrierScore = "neg_brier_score"
	ScoringAccuracy      = "accuracy"
)

// ScoreFunc scores positive-class probabilities against binary labels.
type ScoreFunc func(yTrue, proba *mat.VecDense) (float64, error)

var scorers = map[string]ScoreFunc{
	ScoringNegLogLoss: func(yTrue, proba *mat.VecDense) (float64, error) {
		v, err := metrics.BinaryLogLoss(yTrue, proba)
		return -v, err
	},
	ScoringROCAUC: metrics.AUC,
	ScoringNegBrierScore: func(yTrue, proba *mat.VecDense) (float64, error) {
		v, err := metrics.BrierScore(yTrue, proba)
		return -v, err
	},
	ScoringAccuracy: func(yTrue, proba *mat.VecDense) (float64, error) {
		pred := mat.NewVecDense(proba.Len(), nil)
		for i := 0; i < proba.Len(); i++ {
			if proba.AtVec(i) > 0.5 {
				pred.SetVec(i, 1)
			}
		}
		return metrics.Accuracy(yTrue, pred)
	},
}

// GetScorer returns the scorer registered under name.
func GetScorer(name string) (ScoreFunc, error) {
	fn, ok := scorers[name]
	if !ok {
		return nil, errors.NewValidationError("scoring", "unknown scorer, expected one of "+scorerList(), name)
	}
	return fn, nil
}

// ScorerNames returns the registered scorer names in sorted order.
func ScorerNames() []string {
	names := make([]string, 0, len(scorers))
	for name := range scorers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func scorerList() string {
	return strings.Join(ScorerNames(), ", ")
}
