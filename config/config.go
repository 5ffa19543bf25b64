// Package config holds the settings of a training run. The defaults reproduce
// the fixed paths and constants of the swing probability training script.
package config

import (
	"strings"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/pkg/log"
	"github.com/YuminosukeSato/swingprob/sklearn/model_selection"
	"github.com/YuminosukeSato/swingprob/sklearn/pipeline"
)

// Default paths.
const (
	DefaultDataPath  = "data/raw/swing_data.csv"
	DefaultModelPath = "models/swing_probability_model.gob"
)

// Config is the complete configuration of a training run.
type Config struct {
	DataPath  string
	ModelPath string

	// ReportDir, when set, receives the JSON report and the ROC and
	// calibration plots.
	ReportDir string
	// MetricsFile, when set, receives the run metrics in Prometheus
	// textfile format.
	MetricsFile string

	// Seed drives the train/test split and the forest.
	Seed     uint64
	TestSize float64

	CV        int
	NJobs     int // <= 0 uses all cores
	Scoring   string
	Verbose   int
	ParamGrid model_selection.ParamGrid

	LogLevel  string
	LogFormat string
}

// DefaultParamGrid returns the 27-candidate random forest grid.
func DefaultParamGrid() model_selection.ParamGrid {
	return model_selection.ParamGrid{
		"model__n_estimators":      {100, 200, 400},
		"model__max_depth":         {20, 40, nil},
		"model__min_samples_split": {4, 10, 20},
	}
}

// Default returns the configuration of the original training run.
func Default() Config {
	return Config{
		DataPath:  DefaultDataPath,
		ModelPath: DefaultModelPath,
		Seed:      42,
		TestSize:  0.2,
		CV:        5,
		NJobs:     -1,
		Scoring:   model_selection.ScoringNegLogLoss,
		Verbose:   1,
		ParamGrid: DefaultParamGrid(),
		LogLevel:  "info",
		LogFormat: log.FormatJSON,
	}
}

// Validate reports the first invalid field as a ValidationError.
func (c Config) Validate() error {
	if c.DataPath == "" {
		return errors.NewValidationError("data", "must not be empty", c.DataPath)
	}
	if c.ModelPath == "" {
		return errors.NewValidationError("model-out", "must not be empty", c.ModelPath)
	}
	if !(c.TestSize > 0 && c.TestSize < 1) {
		return errors.NewValidationError("test-size", "must be in (0, 1)", c.TestSize)
	}
	if c.CV < 2 {
		return errors.NewValidationError("cv", "must be >= 2", c.CV)
	}
	if _, err := model_selection.GetScorer(c.Scoring); err != nil {
		return err
	}
	if c.Verbose < 0 {
		return errors.NewValidationError("verbose", "must be >= 0", c.Verbose)
	}
	if _, err := c.ParamGrid.Candidates(); err != nil {
		return err
	}
	for key := range c.ParamGrid {
		if !strings.HasPrefix(key, pipeline.PreprocessorPrefix) && !strings.HasPrefix(key, pipeline.ModelPrefix) {
			return errors.NewValidationError(key, "grid keys must start with "+pipeline.PreprocessorPrefix+" or "+pipeline.ModelPrefix, key)
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", log.FormatJSON, log.FormatConsole:
	default:
		return errors.NewValidationError("log-format", "must be one of json, console", c.LogFormat)
	}
	return nil
}
