// Package telemetry records the metrics of a training run in a Prometheus
// registry and writes them in the node_exporter textfile format.
package telemetry

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/sklearn/model_selection"
)

const namespace = "swingprob"

// Fit status label values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Recorder collects the metrics of one training run. It implements
// model_selection.FitObserver and is safe for concurrent use.
type Recorder struct {
	registry    *prometheus.Registry
	fits        *prometheus.CounterVec
	fitDuration prometheus.Histogram
	bestScore   prometheus.Gauge
	testMetric  *prometheus.GaugeVec
	runInfo     *prometheus.GaugeVec
}

var _ model_selection.FitObserver = (*Recorder)(nil)

// NewRecorder creates a recorder with its own registry. runID is exported
// as the run_id label of swingprob_run_info.
func NewRecorder(runID string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cv_fits_total",
			Help:      "Cross-validation fits by outcome.",
		}, []string{"status"}),
		fitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cv_fit_duration_seconds",
			Help:      "Wall time of a single cross-validation fit.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		bestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_cv_score",
			Help:      "Mean cross-validated score of the best candidate.",
		}),
		testMetric: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "test_metric",
			Help:      "Held-out test metrics of the best estimator.",
		}, []string{"metric"}),
		runInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_info",
			Help:      "Constant 1, labelled with the training run id.",
		}, []string{"run_id"}),
	}
	r.registry.MustRegister(r.fits, r.fitDuration, r.bestScore, r.testMetric, r.runInfo)
	r.runInfo.WithLabelValues(runID).Set(1)
	// both series exist from the start so rates work on the first scrape
	r.fits.WithLabelValues(StatusOK)
	r.fits.WithLabelValues(StatusFailed)
	return r
}

// ObserveFit counts a finished cross-validation job and records its fit time.
func (r *Recorder) ObserveFit(out model_selection.FitOutcome) {
	status := StatusOK
	if out.Err != nil {
		status = StatusFailed
	}
	r.fits.WithLabelValues(status).Inc()
	r.fitDuration.Observe(out.FitTime.Seconds())
}

// SetBestScore records the mean CV score of the selected candidate.
func (r *Recorder) SetBestScore(v float64) {
	r.bestScore.Set(v)
}

// SetTestMetric records a held-out metric such as "roc_auc" or "log_loss".
func (r *Recorder) SetTestMetric(name string, v float64) {
	r.testMetric.WithLabelValues(name).Set(v)
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteToTextfile writes every metric to path, creating parent directories.
// The file is replaced atomically.
func (r *Recorder) WriteToTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create metrics directory %s", dir)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}
