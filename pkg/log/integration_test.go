package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// TestLoggerInterface tests the Logger interface implementation
func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", "operation", "test")
	testLogger.Warn("warning message", "warning_code", "TEST_WARNING")
	testLogger.Error("error message", fmt.Errorf("test error"), "error_code", "TEST_ERROR")

	if buffer.String() == "" {
		t.Fatal("Expected log output, got empty string")
	}

	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}

	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0))
	assert.True(t, testLogger.ContainsField("error", "test error"))
	assert.True(t, testLogger.ContainsField("error_code", "TEST_ERROR"))
}

// TestLoggerWith tests the With method for context-aware logging
func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	contextLogger := testLogger.With(
		ModelNameKey, "RandomForestClassifier",
		ComponentKey, "model_selection",
		RunIDKey, "run-001",
	)
	contextLogger.Info("contextual message", OperationKey, OperationFit)

	assert.True(t, testLogger.ContainsField(ModelNameKey, "RandomForestClassifier"))
	assert.True(t, testLogger.ContainsField(ComponentKey, "model_selection"))
	assert.True(t, testLogger.ContainsField(RunIDKey, "run-001"))
	assert.True(t, testLogger.ContainsField(OperationKey, OperationFit))
}

// TestLoggerEnabled tests the Enabled method
func TestLoggerEnabled(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	assert.True(t, testLogger.Enabled(ctx, LevelInfo))
	assert.True(t, testLogger.Enabled(ctx, LevelError))
	assert.False(t, testLogger.Enabled(ctx, LevelDebug))

	testLogger.Debug("this should not appear")
	testLogger.Info("this should appear")

	assert.False(t, testLogger.ContainsMessage("this should not appear"))
	assert.True(t, testLogger.ContainsMessage("this should appear"))
}

// TestSearchAttributeKeys tests the cross-validation attribute keys
func TestSearchAttributeKeys(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	testLogger.Info("Fitting 5 folds for each of 27 candidates, totalling 135 fits",
		OperationKey, OperationFit,
		PhaseKey, PhaseTraining,
		CVSplitsKey, 5,
		CandidatesKey, 27,
		SamplesKey, 1000,
		FeaturesKey, 18,
	)

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	expectedFields := map[string]interface{}{
		OperationKey:  OperationFit,
		PhaseKey:      PhaseTraining,
		CVSplitsKey:   5.0,
		CandidatesKey: 27.0,
		SamplesKey:    1000.0,
		FeaturesKey:   18.0,
	}
	for key, expectedValue := range expectedFields {
		assert.Equal(t, expectedValue, entries[0][key], key)
	}
}

// TestLoggerProviderIntegration tests the LoggerProvider interface
func TestLoggerProviderIntegration(t *testing.T) {
	provider, captured := NewTestLoggerProvider(LevelDebug)

	provider.GetLogger().Info("provider test message")
	provider.GetLoggerWithName("dataset").Info("named logger message")

	assert.True(t, captured.ContainsMessage("provider test message"))
	assert.True(t, captured.ContainsMessage("named logger message"))
	assert.True(t, captured.ContainsField(ComponentKey, "dataset"))

	provider.SetLevel(LevelError)
	provider.GetLogger().Info("suppressed")
	assert.False(t, captured.ContainsMessage("suppressed"))
}

// TestConcurrentLogging tests thread safety of logging
func TestConcurrentLogging(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	child := testLogger.With(ComponentKey, "worker")

	const numGoroutines, messagesPerGoroutine = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < messagesPerGoroutine; j++ {
				child.Info(fmt.Sprintf("goroutine %d message %d", id, j), FoldKey, j)
			}
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, numGoroutines*messagesPerGoroutine)
}

func TestZerologProvider(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelInfo, false)

	logger := p.GetLoggerWithName("training").With(RunIDKey, "abc")
	logger.Debug("hidden")
	logger.Info("Loaded dataset", SamplesKey, 120, PathKey, "data/raw/swing_data.csv")
	logger.Error("Save failed", errors.New("disk full"), PathKey, "models/m.gob")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &info))
	assert.Equal(t, "info", info["level"])
	assert.Equal(t, "Loaded dataset", info["message"])
	assert.Equal(t, "training", info[ComponentKey])
	assert.Equal(t, "abc", info[RunIDKey])
	assert.Equal(t, 120.0, info[SamplesKey])

	var failed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))
	assert.Equal(t, "error", failed["level"])
	assert.Equal(t, "disk full", failed["error"])
	assert.Contains(t, failed["error.source"], "integration_test.go")

	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, LevelDebug))
	p.SetLevel(LevelDebug)
	assert.True(t, logger.Enabled(ctx, LevelDebug))
}

func TestZerologProviderStructuredWarning(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelWarn, false)
	InstallWarningHook(p.GetLogger())
	defer errors.SetZerologWarnFunc(nil)

	errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present in y_true", 0.5))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "UndefinedMetricWarning", entry[ErrorTypeKey])
	detail, ok := entry[WarningKey].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "roc_auc", detail["metric"])
	assert.Equal(t, 0.5, detail["result"])
	assert.NotContains(t, entry, WarningKey+".detail")
}

func TestSetupLogger(t *testing.T) {
	prev := Provider()
	defer func() {
		SetProvider(prev)
		errors.SetZerologWarnFunc(nil)
	}()

	var buf bytes.Buffer
	require.NoError(t, SetupLogger("debug", "json", &buf))
	GetLoggerWithName("cli").Debug("ready")
	assert.Contains(t, buf.String(), `"ready"`)

	assert.Error(t, SetupLogger("verbose", "json", &buf))
	assert.Error(t, SetupLogger("info", "xml", &buf))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("trace")
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

// BenchmarkLogging benchmarks logging performance
func BenchmarkLogging(b *testing.B) {
	testLogger, _ := NewTestLogger(LevelInfo)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		testLogger.Info("benchmark message",
			CandidateKey, i,
			OperationKey, OperationPredict,
			SamplesKey, 1000,
		)
	}
}
