// Package training runs the end-to-end swing probability training: load the
// pitch data, hold out a stratified test split, grid-search a random forest
// pipeline with cross-validation, evaluate the best estimator and persist it.
package training

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/config"
	"github.com/YuminosukeSato/swingprob/core/model"
	"github.com/YuminosukeSato/swingprob/dataset"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/pkg/log"
	"github.com/YuminosukeSato/swingprob/pkg/telemetry"
	"github.com/YuminosukeSato/swingprob/preprocessing"
	"github.com/YuminosukeSato/swingprob/report"
	"github.com/YuminosukeSato/swingprob/sklearn/ensemble"
	"github.com/YuminosukeSato/swingprob/sklearn/model_selection"
	"github.com/YuminosukeSato/swingprob/sklearn/pipeline"
)

// ModelType is recorded in the manifest of every saved model.
const ModelType = "Pipeline[ColumnTransformer,RandomForestClassifier]"

// Result summarizes a finished training run.
type Result struct {
	RunID        string
	BestParams   map[string]interface{}
	BestScore    float64
	CVResults    *model_selection.CVResults
	Metrics      Metrics
	ModelPath    string
	TrainSamples int
	TestSamples  int
}

// NewPipeline returns the unfitted swing pipeline: mean imputation and
// standard scaling for numeric columns, most-frequent imputation and one-hot
// encoding ignoring unknown categories for categorical columns, and a random
// forest seeded with seed.
func NewPipeline(seed uint64) *pipeline.Pipeline {
	pre := preprocessing.NewColumnTransformer(
		preprocessing.WithNumericStrategy(preprocessing.StrategyMean),
		preprocessing.WithCategoricalStrategy(preprocessing.StrategyMostFrequent),
		preprocessing.WithHandleUnknown(preprocessing.HandleUnknownIgnore),
	)
	clf := ensemble.NewRandomForestClassifier(ensemble.WithRandomState(int64(seed)))
	return pipeline.New(pre, clf)
}

// Run executes a training run and writes the console summary to out.
func Run(ctx context.Context, cfg config.Config, out io.Writer) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	logger := log.GetLoggerWithName("training").With(log.RunIDKey, runID)
	started := time.Now()

	ds, err := dataset.ReadCSV(cfg.DataPath, dataset.SwingSchema(), dataset.ReadOptions{})
	if err != nil {
		return nil, err
	}
	trainIdx, testIdx, err := model_selection.TrainTestSplit(ds.Labels, cfg.TestSize, cfg.Seed, true)
	if err != nil {
		return nil, errors.Wrap(err, "stratified train/test split failed")
	}
	train, test := ds.Subset(trainIdx), ds.Subset(testIdx)
	logger.Info("Split dataset",
		log.TrainSamplesKey, train.Len(),
		log.TestSamplesKey, test.Len(),
		log.RandomSeedKey, cfg.Seed,
	)

	recorder := telemetry.NewRecorder(runID)
	search := model_selection.NewGridSearchCV(NewPipeline(cfg.Seed), cfg.ParamGrid,
		model_selection.WithCV(cfg.CV),
		model_selection.WithScoring(cfg.Scoring),
		model_selection.WithNJobs(cfg.NJobs),
		model_selection.WithVerbose(cfg.Verbose),
		model_selection.WithObserver(recorder),
		model_selection.WithLogger(logger.With(log.ComponentKey, "model_selection")),
	)
	if err := search.Fit(ctx, train.Frame, train.Labels); err != nil {
		return nil, err
	}
	best := search.BestEstimator
	recorder.SetBestScore(search.BestScore)

	proba, err := best.PredictPositive(test.Frame)
	if err != nil {
		return nil, errors.Wrap(err, "failed to predict the test split")
	}
	m, err := Evaluate(test.Labels, proba)
	if err != nil {
		return nil, err
	}
	for name, v := range m.Map() {
		recorder.SetTestMetric(name, v)
	}

	if err := m.Print(out); err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintln(out, "Best Parameters:", search.BestParams); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := saveModel(best, cfg.ModelPath, runID, m); err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(out, "✅ Model saved to %s\n", cfg.ModelPath); err != nil {
		return nil, errors.WithStack(err)
	}

	res := &Result{
		RunID:        runID,
		BestParams:   search.BestParams,
		BestScore:    search.BestScore,
		CVResults:    search.CVResults,
		Metrics:      m,
		ModelPath:    cfg.ModelPath,
		TrainSamples: train.Len(),
		TestSamples:  test.Len(),
	}

	if cfg.ReportDir != "" {
		rep := &report.Report{
			RunID:        runID,
			CreatedAt:    time.Now().UTC(),
			DataPath:     cfg.DataPath,
			ModelPath:    cfg.ModelPath,
			TrainSamples: res.TrainSamples,
			TestSamples:  res.TestSamples,
			Scoring:      cfg.Scoring,
			CVSplits:     search.NSplits,
			BestParams:   search.BestParams,
			BestScore:    report.Float(search.BestScore),
			Metrics:      report.Metrics(m.Map()),
			Candidates:   report.Candidates(search.CVResults),
		}
		yTrue := mat.NewVecDense(test.Len(), append([]float64(nil), test.Labels...))
		if err := report.Write(cfg.ReportDir, rep, yTrue, mat.NewVecDense(len(proba), proba)); err != nil {
			return nil, err
		}
		logger.Info("Wrote training report", log.PathKey, cfg.ReportDir)
	}
	if cfg.MetricsFile != "" {
		if err := recorder.WriteToTextfile(cfg.MetricsFile); err != nil {
			return nil, err
		}
	}

	logger.Info("Training finished",
		log.ScoreKey, search.BestScore,
		log.ROCAUCKey, m.ROCAUC,
		log.BrierKey, m.BrierScore,
		log.LossKey, m.LogLoss,
		log.DurationSecondsKey, time.Since(started).Seconds(),
	)
	return res, nil
}

// saveModel persists the fitted pipeline and its manifest sidecar.
func saveModel(p *pipeline.Pipeline, path, runID string, m Metrics) error {
	if err := model.SaveModel(p, path); err != nil {
		return errors.Wrapf(err, "failed to save model to %s", path)
	}
	manifest := &model.Manifest{
		ModelType:       ModelType,
		RunID:           runID,
		Features:        p.FeatureNames(),
		Hyperparameters: p.GetParams(),
		Metrics:         m.Map(),
		IsFitted:        p.IsFitted(),
	}
	return model.WriteManifest(path, manifest)
}
