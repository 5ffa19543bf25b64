package ensemble

import (
	"bytes"
	"encoding/gob"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/core/model"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// noisyData generates two informative features, one noise feature and a
// label that follows the informative ones most of the time.
func noisyData(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, 1))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		X.Set(i, 2, rng.Float64())
		if a+0.5*b+0.3*rng.NormFloat64() > 0 {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func TestRandomForestClassifier_Fit(t *testing.T) {
	X, y := noisyData(200, 3)
	rf := NewRandomForestClassifier(WithNEstimators(25), WithRandomState(42))
	require.NoError(t, rf.Fit(X, y))

	assert.True(t, rf.IsFitted())
	assert.Len(t, rf.Estimators(), 25)
	assert.Equal(t, []float64{0, 1}, rf.Classes())

	proba, err := rf.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	require.Equal(t, 200, r)
	require.Equal(t, 2, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-9)
	}

	pred, err := rf.Predict(X)
	require.NoError(t, err)
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	assert.Greater(t, float64(correct)/float64(r), 0.9)

	imp := rf.GetFeatureImportances()
	require.Len(t, imp, 3)
	assert.Greater(t, imp[0], imp[2])
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-9)
}

func TestRandomForestClassifier_DeterministicAcrossJobs(t *testing.T) {
	X, y := noisyData(120, 5)

	fit := func(jobs int) mat.Matrix {
		rf := NewRandomForestClassifier(WithNEstimators(16), WithRandomState(7), WithNJobs(jobs))
		require.NoError(t, rf.Fit(X, y))
		proba, err := rf.PredictProba(X)
		require.NoError(t, err)
		return proba
	}

	sequential := fit(1)
	assert.True(t, mat.Equal(sequential, fit(4)))
	assert.True(t, mat.Equal(sequential, fit(-1)))
}

func TestRandomForestClassifier_SeedChangesForest(t *testing.T) {
	X, y := noisyData(120, 5)
	a := NewRandomForestClassifier(WithNEstimators(8), WithRandomState(1))
	b := NewRandomForestClassifier(WithNEstimators(8), WithRandomState(2))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.PredictProba(X)
	require.NoError(t, err)
	pb, err := b.PredictProba(X)
	require.NoError(t, err)
	assert.False(t, mat.Equal(pa, pb))
}

func TestRandomForestClassifier_MaxFeatures(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want int
	}{
		{"sqrt", WithMaxFeatures(MaxFeaturesSqrt), 4},
		{"log2", WithMaxFeatures(MaxFeaturesLog2), 4},
		{"all", WithMaxFeatures(MaxFeaturesAll), 20},
		{"fixed", WithMaxFeaturesN(7), 7},
		{"fixed above width", WithMaxFeaturesN(50), 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf := NewRandomForestClassifier(tt.opt)
			assert.Equal(t, tt.want, rf.resolveMaxFeatures(20))
		})
	}
	assert.Equal(t, 1, NewRandomForestClassifier().resolveMaxFeatures(1))
}

func TestRandomForestClassifier_NoBootstrap(t *testing.T) {
	X, y := noisyData(60, 9)
	rf := NewRandomForestClassifier(WithNEstimators(3), WithBootstrap(false), WithMaxFeatures(MaxFeaturesAll))
	require.NoError(t, rf.Fit(X, y))

	// identical data and all features give identical fully grown trees
	for _, dt := range rf.Estimators() {
		assert.Equal(t, 1.0, dt.Score(X, y))
		assert.Equal(t, 60, dt.GetTree().Nodes[0].NSamples)
	}
}

func TestRandomForestClassifier_SetParams(t *testing.T) {
	rf := NewRandomForestClassifier()
	params := rf.GetParams()
	assert.Equal(t, 100, params["n_estimators"])
	assert.Equal(t, "sqrt", params["max_features"])
	assert.Equal(t, 0, params["max_depth"])
	assert.Equal(t, true, params["bootstrap"])

	require.NoError(t, rf.SetParams(map[string]interface{}{
		"n_estimators":      200,
		"max_depth":         40,
		"min_samples_split": 10,
		"random_state":      42,
		"n_jobs":            -1,
	}))
	params = rf.GetParams()
	assert.Equal(t, 200, params["n_estimators"])
	assert.Equal(t, 40, params["max_depth"])
	assert.Equal(t, 10, params["min_samples_split"])
	assert.Equal(t, int64(42), params["random_state"])

	require.NoError(t, rf.SetParams(map[string]interface{}{"max_depth": nil, "max_features": 3}))
	params = rf.GetParams()
	assert.Equal(t, 0, params["max_depth"])
	assert.Equal(t, 3, params["max_features"])

	require.NoError(t, rf.SetParams(map[string]interface{}{"max_features": nil}))
	assert.Equal(t, MaxFeaturesAll, rf.GetParams()["max_features"])

	tests := []map[string]interface{}{
		{"n_estimators": 0},
		{"min_samples_split": 1},
		{"max_features": "cube"},
		{"criterion": "mse"},
		{"bootstrap": "yes"},
		{"learning_rate": 0.1},
	}
	for _, p := range tests {
		err := rf.SetParams(p)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve), "params %v", p)
	}
	// rejected updates leave the forest untouched
	assert.Equal(t, 200, rf.GetParams()["n_estimators"])
}

func TestRandomForestClassifier_Clone(t *testing.T) {
	X, y := noisyData(50, 2)
	rf := NewRandomForestClassifier(WithNEstimators(5), WithMaxDepth(3))
	require.NoError(t, rf.Fit(X, y))

	var clone model.Classifier = rf.Clone()
	assert.Equal(t, rf.GetParams(), clone.GetParams())
	_, err := clone.PredictProba(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestRandomForestClassifier_Gob(t *testing.T) {
	X, y := noisyData(80, 4)
	rf := NewRandomForestClassifier(WithNEstimators(10), WithMaxDepth(6), WithRandomState(42))
	require.NoError(t, rf.Fit(X, y))

	// encode behind the interface as a pipeline does
	var buf bytes.Buffer
	var clf model.Classifier = rf
	require.NoError(t, gob.NewEncoder(&buf).Encode(&clf))

	var loaded model.Classifier
	require.NoError(t, gob.NewDecoder(&buf).Decode(&loaded))
	require.IsType(t, &RandomForestClassifier{}, loaded)

	want, err := rf.PredictProba(X)
	require.NoError(t, err)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
	assert.Equal(t, rf.GetParams(), loaded.GetParams())
}

func TestRandomForestClassifier_Errors(t *testing.T) {
	rf := NewRandomForestClassifier(WithNEstimators(2))

	_, err := rf.PredictProba(mat.NewDense(1, 3, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X, y := noisyData(20, 1)
	assert.Error(t, rf.Fit(X, mat.NewDense(19, 1, nil)))
	require.NoError(t, rf.Fit(X, y))

	_, err = rf.PredictProba(mat.NewDense(1, 2, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}
