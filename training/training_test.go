package training

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/swingprob/config"
	"github.com/YuminosukeSato/swingprob/core/model"
	"github.com/YuminosukeSato/swingprob/dataset"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/report"
	"github.com/YuminosukeSato/swingprob/sklearn/model_selection"
)

func writeSynthetic(t *testing.T, dir string, n int, seed uint64) (string, *dataset.Dataset) {
	t.Helper()
	ds := dataset.Synthetic(n, seed)
	var buf bytes.Buffer
	require.NoError(t, dataset.WriteCSV(&buf, ds))
	path := filepath.Join(dir, "swing_data.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path, ds
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	data, _ := writeSynthetic(t, dir, 200, 3)
	cfg := config.Default()
	cfg.DataPath = data
	cfg.ModelPath = filepath.Join(dir, "models", "swing_probability_model.gob")
	cfg.CV = 3
	cfg.NJobs = 2
	cfg.ParamGrid = model_selection.ParamGrid{
		"model__n_estimators": {10},
		"model__max_depth":    {4, nil},
	}
	return cfg
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReportDir = filepath.Join(filepath.Dir(cfg.ModelPath), "report")
	cfg.MetricsFile = filepath.Join(filepath.Dir(cfg.ModelPath), "swingprob.prom")

	var out bytes.Buffer
	res, err := Run(context.Background(), cfg, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Regexp(t, `^ROC AUC: \d\.\d{3}$`, lines[0])
	assert.Regexp(t, `^Brier Score: \d\.\d{3}$`, lines[1])
	assert.Regexp(t, `^Log Loss: \d+\.\d{3}$`, lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "Best Parameters: map[model__max_depth:"), lines[3])
	assert.Equal(t, "✅ Model saved to "+cfg.ModelPath, lines[4])

	assert.Equal(t, 160, res.TrainSamples)
	assert.Equal(t, 40, res.TestSamples)
	assert.NotEmpty(t, res.RunID)
	assert.GreaterOrEqual(t, res.Metrics.ROCAUC, 0.0)
	assert.LessOrEqual(t, res.Metrics.ROCAUC, 1.0)
	assert.GreaterOrEqual(t, res.Metrics.BrierScore, 0.0)
	assert.LessOrEqual(t, res.Metrics.BrierScore, 1.0)
	assert.GreaterOrEqual(t, res.Metrics.LogLoss, 0.0)
	assert.Len(t, res.CVResults.Params, 2)

	p, manifest, err := LoadPipeline(cfg.ModelPath)
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, res.RunID, manifest.RunID)
	assert.Equal(t, ModelType, manifest.ModelType)
	assert.InDelta(t, res.Metrics.ROCAUC, manifest.Metrics[MetricROCAUC], 1e-12)
	assert.True(t, p.IsFitted())

	for _, name := range []string{report.JSONFile, report.ROCFile, report.CalibrationFile} {
		assert.FileExists(t, filepath.Join(cfg.ReportDir, name))
	}
	prom, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `swingprob_cv_fits_total{status="ok"} 6`)
	assert.Contains(t, string(prom), `swingprob_test_metric{metric="roc_auc"}`)
}

func TestRunReproducible(t *testing.T) {
	cfg := testConfig(t)
	var out1, out2 bytes.Buffer
	a, err := Run(context.Background(), cfg, &out1)
	require.NoError(t, err)
	b, err := Run(context.Background(), cfg, &out2)
	require.NoError(t, err)

	assert.Equal(t, a.BestParams, b.BestParams)
	assert.Equal(t, a.Metrics, b.Metrics)
	assert.Equal(t, out1.String(), out2.String())
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataPath = filepath.Join(t.TempDir(), "missing.csv")
	_, err := Run(context.Background(), cfg, &bytes.Buffer{})
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.CV = 0
	_, err = Run(context.Background(), cfg, &bytes.Buffer{})
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	// a header without the label column cannot be trained on
	dir := t.TempDir()
	path := filepath.Join(dir, "unlabeled.csv")
	require.NoError(t, os.WriteFile(path, []byte("pitch_name,stand\nSlider,R\n"), 0o644))
	cfg = testConfig(t)
	cfg.DataPath = path
	_, err = Run(context.Background(), cfg, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestPredictAndEvaluateModel(t *testing.T) {
	cfg := testConfig(t)
	_, err := Run(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)

	holdout, ds := writeSynthetic(t, t.TempDir(), 30, 99)

	var preds bytes.Buffer
	require.NoError(t, Predict(cfg.ModelPath, holdout, &preds))
	lines := strings.Split(strings.TrimSpace(preds.String()), "\n")
	require.Len(t, lines, 31)
	assert.Equal(t, "row,swing_probability", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,"))

	p, _, err := LoadPipeline(cfg.ModelPath)
	require.NoError(t, err)
	want, err := p.PredictPositive(ds.Frame)
	require.NoError(t, err)
	var direct bytes.Buffer
	require.NoError(t, dataset.WritePredictions(&direct, want))
	assert.Equal(t, direct.String(), preds.String())

	var out bytes.Buffer
	m, err := EvaluateModel(cfg.ModelPath, holdout, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "ROC AUC: ")
	assert.Contains(t, out.String(), "Log Loss: ")
	assert.GreaterOrEqual(t, m.Accuracy, 0.0)
}

func TestLoadPipelineDetectsTampering(t *testing.T) {
	cfg := testConfig(t)
	_, err := Run(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)

	f, err := os.OpenFile(cfg.ModelPath, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte{0})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, _, err = LoadPipeline(cfg.ModelPath)
	assert.Error(t, err)

	require.NoError(t, os.Remove(model.ManifestPath(cfg.ModelPath)))
	_, manifest, err := LoadPipeline(cfg.ModelPath)
	// without a manifest the trailing byte is ignored by gob
	require.NoError(t, err)
	assert.Nil(t, manifest)
}

func TestEvaluate(t *testing.T) {
	m, err := Evaluate([]float64{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, m.ROCAUC, 1e-12)
	assert.InDelta(t, 0.75, m.Accuracy, 1e-12)
	assert.InDelta(t, (0.01+0.16+0.4225+0.04)/4, m.BrierScore, 1e-12)

	var out bytes.Buffer
	require.NoError(t, m.Print(&out))
	assert.Equal(t, "ROC AUC: 0.750\nBrier Score: 0.158\nLog Loss: 0.472\n", out.String())

	_, err = Evaluate([]float64{0, 1}, []float64{0.5})
	assert.Error(t, err)
	_, err = Evaluate(nil, nil)
	assert.Error(t, err)
}
