package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/sklearn/model_selection"
)

func TestRecorderTextfile(t *testing.T) {
	r := NewRecorder("run-123")
	r.ObserveFit(model_selection.FitOutcome{FitTime: 20 * time.Millisecond, Score: -0.5})
	r.ObserveFit(model_selection.FitOutcome{FitTime: 30 * time.Millisecond, Score: -0.4})
	r.ObserveFit(model_selection.FitOutcome{Err: errors.New("boom")})
	r.SetBestScore(-0.45)
	r.SetTestMetric("roc_auc", 0.875)

	path := filepath.Join(t.TempDir(), "nested", "swingprob.prom")
	require.NoError(t, r.WriteToTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, `swingprob_cv_fits_total{status="ok"} 2`)
	assert.Contains(t, text, `swingprob_cv_fits_total{status="failed"} 1`)
	assert.Contains(t, text, "swingprob_cv_fit_duration_seconds_count 3")
	assert.Contains(t, text, "swingprob_best_cv_score -0.45")
	assert.Contains(t, text, `swingprob_test_metric{metric="roc_auc"} 0.875`)
	assert.Contains(t, text, `swingprob_run_info{run_id="run-123"} 1`)
}

func TestRecorderRegistryIsolated(t *testing.T) {
	a, b := NewRecorder("a"), NewRecorder("b")
	a.SetBestScore(1)

	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "swingprob_best_cv_score" {
			assert.Equal(t, 0.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
}
