package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/swingprob/dataset"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeCSV(t *testing.T, dir string, n int, seed uint64) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, dataset.WriteCSV(&buf, dataset.Synthetic(n, seed)))
	path := filepath.Join(dir, "swing.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestTrainPredictEvaluate(t *testing.T) {
	dir := t.TempDir()
	data := writeCSV(t, dir, 150, 4)
	modelPath := filepath.Join(dir, "model.gob")

	stdout, stderr, err := execute(t, "train",
		"--data", data, "--model-out", modelPath,
		"--cv", "3", "--jobs", "2", "--log-format", "console", "--log-level", "debug")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "ROC AUC: ")
	assert.Contains(t, stdout, "Best Parameters: map[")
	assert.Contains(t, stdout, "✅ Model saved to "+modelPath)
	assert.Contains(t, stderr, "Fitting 3 folds for each of 27 candidates, totalling 81 fits")

	stdout, _, err = execute(t, "predict", "--model", modelPath, "--data", data)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(stdout), "\n"), 151)

	outPath := filepath.Join(dir, "preds.csv")
	_, _, err = execute(t, "predict", "--model", modelPath, "--data", data, "--out", outPath)
	require.NoError(t, err)
	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, stdout, string(written))

	stdout, _, err = execute(t, "evaluate", "--model", modelPath, "--data", data)
	require.NoError(t, err)
	assert.Regexp(t, `^ROC AUC: \d\.\d{3}\nBrier Score: \d\.\d{3}\nLog Loss: \d+\.\d{3}\n$`, stdout)
}

func TestFlagErrors(t *testing.T) {
	_, _, err := execute(t, "--test-size", "1.5", "--data", "x.csv")
	assert.Error(t, err)

	_, _, err = execute(t, "--log-format", "xml")
	assert.Error(t, err)

	_, _, err = execute(t, "predict")
	assert.Error(t, err, "--data is required")

	_, _, err = execute(t, "train", "--data", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestRecoveredCommandPanic(t *testing.T) {
	cmd := &cobra.Command{
		Use: "boom",
		RunE: recovered(func(cmd *cobra.Command, args []string) error {
			var m map[string]int
			m["x"]++
			return nil
		}),
	}
	cmd.SetArgs(nil)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	var pe *errors.PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "boom", pe.Operation)
}
