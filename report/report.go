// Package report writes the human-facing artifacts of a training run: a JSON
// summary of the search and the held-out evaluation, and ROC and calibration
// plots.
package report

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/metrics"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/sklearn/model_selection"
)

// File names written by Write.
const (
	JSONFile        = "training_report.json"
	ROCFile         = "roc_curve.png"
	CalibrationFile = "calibration_curve.png"
)

// calibrationBins matches sklearn's calibration_curve default.
const calibrationBins = 10

// Float is a float64 that encodes NaN and ±Inf as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return errors.Wrap(err, "invalid float")
	}
	*f = Float(v)
	return nil
}

// Candidate is one row of the cross-validation table.
type Candidate struct {
	Rank          int                    `json:"rank"`
	Params        map[string]interface{} `json:"params"`
	MeanTestScore Float                  `json:"mean_test_score"`
	StdTestScore  Float                  `json:"std_test_score"`
	SplitScores   []Float                `json:"split_test_scores"`
	MeanFitTime   Float                  `json:"mean_fit_time_seconds"`
	MeanScoreTime Float                  `json:"mean_score_time_seconds"`
}

// Report summarizes a training run.
type Report struct {
	RunID        string                 `json:"run_id"`
	CreatedAt    time.Time              `json:"created_at"`
	DataPath     string                 `json:"data_path"`
	ModelPath    string                 `json:"model_path"`
	TrainSamples int                    `json:"train_samples"`
	TestSamples  int                    `json:"test_samples"`
	Scoring      string                 `json:"scoring"`
	CVSplits     int                    `json:"cv_splits"`
	BestParams   map[string]interface{} `json:"best_params"`
	BestScore    Float                  `json:"best_score"`
	Metrics      map[string]Float       `json:"metrics"`
	Candidates   []Candidate            `json:"cv_results"`
}

// Candidates converts search results into rows ordered by rank, grid order
// breaking ties.
func Candidates(res *model_selection.CVResults) []Candidate {
	if res == nil {
		return nil
	}
	rows := make([]Candidate, len(res.Params))
	for i := range res.Params {
		split := make([]Float, len(res.SplitScores[i]))
		for k, s := range res.SplitScores[i] {
			split[k] = Float(s)
		}
		rows[i] = Candidate{
			Rank:          res.RankTestScore[i],
			Params:        res.Params[i],
			MeanTestScore: Float(res.MeanTestScore[i]),
			StdTestScore:  Float(res.StdTestScore[i]),
			SplitScores:   split,
			MeanFitTime:   Float(res.MeanFitTime[i]),
			MeanScoreTime: Float(res.MeanScoreTime[i]),
		}
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].Rank < rows[b].Rank })
	return rows
}

// Metrics converts a metric map for the report.
func Metrics(m map[string]float64) map[string]Float {
	out := make(map[string]Float, len(m))
	for k, v := range m {
		out[k] = Float(v)
	}
	return out
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode report")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return &r, nil
}

// Write creates dir and writes the JSON report, the ROC curve and the
// calibration curve of proba against yTrue into it.
func Write(dir string, r *Report, yTrue, proba *mat.VecDense) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create report directory %s", dir)
	}
	if err := r.WriteJSON(filepath.Join(dir, JSONFile)); err != nil {
		return err
	}

	roc, err := metrics.ROCCurve(yTrue, proba)
	if err != nil {
		return errors.Wrap(err, "roc curve")
	}
	auc, err := metrics.AUC(yTrue, proba)
	if err != nil {
		return errors.Wrap(err, "roc auc")
	}
	if err := PlotROC(roc, auc, filepath.Join(dir, ROCFile)); err != nil {
		return err
	}

	cal, err := metrics.CalibrationCurve(yTrue, proba, calibrationBins)
	if err != nil {
		return errors.Wrap(err, "calibration curve")
	}
	return PlotCalibration(cal, filepath.Join(dir, CalibrationFile))
}
