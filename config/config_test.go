package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/sklearn/model_selection"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "data/raw/swing_data.csv", cfg.DataPath)
	assert.Equal(t, "models/swing_probability_model.gob", cfg.ModelPath)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 0.2, cfg.TestSize)
	assert.Equal(t, 5, cfg.CV)
	assert.Equal(t, -1, cfg.NJobs)
	assert.Equal(t, model_selection.ScoringNegLogLoss, cfg.Scoring)
	assert.Equal(t, 27, cfg.ParamGrid.Len())
	assert.Contains(t, cfg.ParamGrid["model__max_depth"], nil)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty data", func(c *Config) { c.DataPath = "" }, "data"},
		{"empty model", func(c *Config) { c.ModelPath = "" }, "model-out"},
		{"test size", func(c *Config) { c.TestSize = 1 }, "test-size"},
		{"cv", func(c *Config) { c.CV = 1 }, "cv"},
		{"scoring", func(c *Config) { c.Scoring = "f1" }, "scoring"},
		{"verbose", func(c *Config) { c.Verbose = -1 }, "verbose"},
		{"grid prefix", func(c *Config) { c.ParamGrid = model_selection.ParamGrid{"max_depth": {1}} }, "max_depth"},
		{"empty grid", func(c *Config) { c.ParamGrid = nil }, "param_grid"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log-format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.ParamName)
		})
	}

	cfg := Default()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())
}
