package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "swingprob: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "PredictProba",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "swingprob: PredictProba: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			// 基本的なエラーメッセージの確認
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("ColumnTransformer.Transform", 16, 15, 1)

	want := "swingprob: ColumnTransformer.Transform: dimension mismatch on axis 1 (features). Expected 16, got 15"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("RandomForestClassifier", "PredictProba")

	want := "swingprob: RandomForestClassifier: this model is not fitted yet. Call Fit() before using PredictProba()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestSchemaError(t *testing.T) {
	t.Run("missing columns", func(t *testing.T) {
		err := NewMissingColumnsError("swing_data.csv", []string{"swing", "stand"})
		assert.Equal(t, "swingprob: swing_data.csv: missing required columns: swing, stand", err.Error())

		var schemaErr *SchemaError
		require.True(t, As(err, &schemaErr))
		assert.Equal(t, []string{"swing", "stand"}, schemaErr.Missing)
	})

	t.Run("bad cell", func(t *testing.T) {
		err := NewSchemaError("swing_data.csv", "release_speed", 12, "cannot parse \"fast\" as a number")
		assert.Equal(t, "swingprob: swing_data.csv: row 12, column 'release_speed': cannot parse \"fast\" as a number", err.Error())
	})

	t.Run("general", func(t *testing.T) {
		err := NewSchemaError("swing_data.csv", "", 0, "no header row")
		assert.Equal(t, "swingprob: swing_data.csv: no header row", err.Error())
	})
}

func TestWarningsRouteThroughHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(error) {})

	Warn(NewUndefinedMetricWarning("roc_auc", "only one class present in y_true", 0.5))
	Warn(NewFitFailedWarning(3, 1, fmt.Errorf("boom")))

	require.Len(t, got, 2)
	assert.Contains(t, got[0].Error(), "'roc_auc' is ill-defined")
	assert.Contains(t, got[1].Error(), "candidate 3 on fold 1")

	var fitFailed *FitFailedWarning
	require.True(t, As(got[1], &fitFailed))
	assert.EqualError(t, fitFailed.Unwrap(), "boom")
}

func TestZerologWarnFuncTakesPrecedence(t *testing.T) {
	var handled, zl int
	SetWarningHandler(func(error) { handled++ })
	SetZerologWarnFunc(func(error) { zl++ })
	defer func() {
		SetZerologWarnFunc(nil)
		SetWarningHandler(func(error) {})
	}()

	Warn(NewDataConversionWarning("all-missing column", "constant 0", "no observed values"))

	assert.Equal(t, 0, handled)
	assert.Equal(t, 1, zl)
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "in GridSearchCV.Fit")

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in GridSearchCV.Fit") {
		t.Error("Expected wrapped error to contain wrapping message")
	}

	wrappedf := Wrapf(ErrAllFitsFailed, "%d candidates", 27)
	assert.True(t, Is(wrappedf, ErrAllFitsFailed))
	assert.Contains(t, wrappedf.Error(), "27 candidates")
}

func TestSourceIsCaller(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"New", New("disk full")},
		{"Newf", Newf("row %d", 3)},
		{"Wrap", Wrap(fmt.Errorf("plain"), "ctx")},
		{"Wrapf", Wrapf(fmt.Errorf("plain"), "ctx %d", 1)},
		{"WithStack", WithStack(fmt.Errorf("plain"))},
		{"NewValidationError", NewValidationError("cv", "must be at least 2", 1)},
		{"NewValueError", NewValueError("Split", "bad")},
		{"NewNotFittedError", NewNotFittedError("Pipeline", "Predict")},
		{"NewDimensionError", NewDimensionError("Transform", 3, 2, 1)},
		{"NewModelError", NewModelError("Fit", "failed", fmt.Errorf("plain"))},
		{"NewSchemaError", NewSchemaError("swing.csv", "balls", 2, "not a number")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, ok := SourceOf(tt.err)
			require.True(t, ok)
			assert.Contains(t, src, "errors_test.go")
		})
	}
}

func TestRecover(t *testing.T) {
	t.Run("panic becomes PanicError", func(t *testing.T) {
		err := SafeExecute("DecisionTreeClassifier.Fit", func() error {
			panic("index out of range")
		})
		require.Error(t, err)

		var panicErr *PanicError
		require.True(t, As(err, &panicErr))
		assert.Equal(t, "DecisionTreeClassifier.Fit", panicErr.Operation)
		assert.NotEmpty(t, panicErr.StackTrace)
		assert.Equal(t, "panic in DecisionTreeClassifier.Fit: index out of range", err.Error())
	})

	t.Run("error panic value is unwrapped", func(t *testing.T) {
		err := SafeExecute("op", func() error {
			panic(ErrEmptyData)
		})
		assert.True(t, Is(err, ErrEmptyData))
	})

	t.Run("no panic keeps result", func(t *testing.T) {
		sentinel := fmt.Errorf("plain failure")
		err := SafeExecute("op", func() error { return sentinel })
		assert.Same(t, sentinel, err)
		assert.NoError(t, SafeExecute("op", func() error { return nil }))
	})

	t.Run("existing error is kept", func(t *testing.T) {
		original := New("original error")
		fn := func() (err error) {
			defer Recover(&err, "op")
			err = original
			panic("after error")
		}
		err := fn()
		require.Error(t, err)
		assert.True(t, Is(err, original))
		assert.Contains(t, err.Error(), "panic in op")
	})
}

func TestNumericalChecks(t *testing.T) {
	assert.NoError(t, CheckScalar("log_loss", 0.3, 0))
	assert.Error(t, CheckScalar("log_loss", math.NaN(), 0))
	assert.Error(t, CheckScalar("log_loss", math.Inf(1), 0))

	m := mat.NewDense(2, 2, []float64{0.1, 0.9, 0.2, 0.8})
	assert.NoError(t, CheckMatrix("predict_proba", m, 2, 2, 0))
	m.Set(1, 0, math.NaN())
	err := CheckMatrix("predict_proba", m, 2, 2, 0)
	var numErr *NumericalInstabilityError
	require.True(t, As(err, &numErr))
	assert.Equal(t, "predict_proba", numErr.Operation)

	assert.Equal(t, 1e-15, ClipValue(0, 1e-15, 1-1e-15))
	assert.Equal(t, 0.5, ClipValue(0.5, 0, 1))
	assert.Equal(t, 1.0, ClipValue(3, 0, 1))
}
