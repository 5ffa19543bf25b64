package training

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/metrics"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// Metric names used in manifests, reports and telemetry.
const (
	MetricROCAUC     = "roc_auc"
	MetricBrierScore = "brier_score"
	MetricLogLoss    = "log_loss"
	MetricAccuracy   = "accuracy"
)

// Metrics are the held-out scores of a fitted pipeline.
type Metrics struct {
	ROCAUC     float64
	BrierScore float64
	LogLoss    float64
	Accuracy   float64 // threshold 0.5
}

// Evaluate scores positive-class probabilities against binary labels.
func Evaluate(yTrue, proba []float64) (Metrics, error) {
	if len(yTrue) != len(proba) {
		return Metrics{}, errors.NewDimensionError("training.Evaluate", len(yTrue), len(proba), 0)
	}
	if len(yTrue) == 0 {
		return Metrics{}, errors.NewModelError("training.Evaluate", "empty data", errors.ErrEmptyData)
	}
	y := mat.NewVecDense(len(yTrue), append([]float64(nil), yTrue...))
	p := mat.NewVecDense(len(proba), append([]float64(nil), proba...))

	var m Metrics
	var err error
	if m.ROCAUC, err = metrics.AUC(y, p); err != nil {
		return Metrics{}, errors.Wrap(err, "roc auc")
	}
	if m.BrierScore, err = metrics.BrierScore(y, p); err != nil {
		return Metrics{}, errors.Wrap(err, "brier score")
	}
	if m.LogLoss, err = metrics.BinaryLogLoss(y, p); err != nil {
		return Metrics{}, errors.Wrap(err, "log loss")
	}

	pred := mat.NewVecDense(p.Len(), nil)
	for i := 0; i < p.Len(); i++ {
		if p.AtVec(i) > 0.5 {
			pred.SetVec(i, 1)
		}
	}
	if m.Accuracy, err = metrics.Accuracy(y, pred); err != nil {
		return Metrics{}, errors.Wrap(err, "accuracy")
	}
	return m, nil
}

// Map returns the metrics keyed by metric name.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		MetricROCAUC:     m.ROCAUC,
		MetricBrierScore: m.BrierScore,
		MetricLogLoss:    m.LogLoss,
		MetricAccuracy:   m.Accuracy,
	}
}

// Print writes the ROC AUC, Brier score and log loss lines to w.
func (m Metrics) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, "ROC AUC: %.3f\nBrier Score: %.3f\nLog Loss: %.3f\n", m.ROCAUC, m.BrierScore, m.LogLoss)
	return errors.WithStack(err)
}
