// Package pipeline chains column preprocessing and a classifier into a single
// estimator that works on raw frames.
package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/swingprob/core/model"
	"github.com/YuminosukeSato/swingprob/dataset"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/preprocessing"
)

// Parameter key prefixes routed by SetParams.
const (
	PreprocessorPrefix = "preprocessor__"
	ModelPrefix        = "model__"
)

// Pipeline applies Preprocessor to a frame and feeds the result to Model.
// Fields are exported so a fitted pipeline can be gob-encoded as one artifact.
type Pipeline struct {
	Preprocessor *preprocessing.ColumnTransformer
	Model        model.Classifier
}

// New creates a pipeline from its two steps.
func New(pre *preprocessing.ColumnTransformer, clf model.Classifier) *Pipeline {
	return &Pipeline{Preprocessor: pre, Model: clf}
}

// Fit fits the preprocessor on f, transforms it and fits the model on the
// result. y is an n×1 label matrix.
func (p *Pipeline) Fit(f *dataset.Frame, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Pipeline.Fit")

	if err := p.check(); err != nil {
		return err
	}
	if f == nil || y == nil {
		return errors.NewModelError("Pipeline.Fit", "empty data", errors.ErrEmptyData)
	}
	if yr, _ := y.Dims(); yr != f.Len() {
		return errors.NewDimensionError("Pipeline.Fit", f.Len(), yr, 0)
	}
	X, err := p.Preprocessor.FitTransform(f)
	if err != nil {
		return errors.Wrap(err, "preprocessor")
	}
	// ±Inf inputs survive imputation and turn into NaN when scaled
	r, c := X.Dims()
	if err := errors.CheckMatrix("Pipeline.Fit", X, r, c, 0); err != nil {
		return err
	}
	if err := p.Model.Fit(X, y); err != nil {
		return errors.Wrap(err, "model")
	}
	return nil
}

// Transform applies the fitted preprocessor only.
func (p *Pipeline) Transform(f *dataset.Frame) (*mat.Dense, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return p.Preprocessor.Transform(f)
}

// PredictProba returns class probabilities with columns ordered as Classes().
func (p *Pipeline) PredictProba(f *dataset.Frame) (mat.Matrix, error) {
	X, err := p.Transform(f)
	if err != nil {
		return nil, err
	}
	return p.Model.PredictProba(X)
}

// Predict returns the predicted label for each row as an n×1 matrix.
func (p *Pipeline) Predict(f *dataset.Frame) (mat.Matrix, error) {
	X, err := p.Transform(f)
	if err != nil {
		return nil, err
	}
	return p.Model.Predict(X)
}

// PredictPositive returns the probability of label 1 for each row. A model
// that never saw label 1 predicts 0 everywhere.
func (p *Pipeline) PredictPositive(f *dataset.Frame) ([]float64, error) {
	proba, err := p.PredictProba(f)
	if err != nil {
		return nil, err
	}
	n, _ := proba.Dims()
	out := make([]float64, n)
	col := -1
	for j, c := range p.Model.Classes() {
		if c == 1 {
			col = j
		}
	}
	if col < 0 {
		return out, nil
	}
	return mat.Col(out, col, proba), nil
}

// Classes returns the labels known to the fitted model.
func (p *Pipeline) Classes() []float64 {
	if p.Model == nil {
		return nil
	}
	return p.Model.Classes()
}

// IsFitted reports whether both steps are fitted.
func (p *Pipeline) IsFitted() bool {
	if p.Preprocessor == nil || p.Model == nil || !p.Preprocessor.IsFitted() {
		return false
	}
	fitted, ok := p.Model.(interface{ IsFitted() bool })
	return ok && fitted.IsFitted()
}

// FeatureNames returns the names of the columns the model was trained on.
func (p *Pipeline) FeatureNames() []string {
	if p.Preprocessor == nil {
		return nil
	}
	return p.Preprocessor.FeatureNamesOut()
}

// GetParams returns the parameters of both steps under their prefixes.
func (p *Pipeline) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	if p.Preprocessor != nil {
		for k, v := range p.Preprocessor.GetParams() {
			params[PreprocessorPrefix+k] = v
		}
	}
	if p.Model != nil {
		for k, v := range p.Model.GetParams() {
			params[ModelPrefix+k] = v
		}
	}
	return params
}

// SetParams routes each key to the step named by its prefix. Keys without a
// known prefix are rejected before anything changes.
func (p *Pipeline) SetParams(params map[string]interface{}) error {
	if err := p.check(); err != nil {
		return err
	}
	pre := make(map[string]interface{})
	clf := make(map[string]interface{})
	for key, value := range params {
		switch {
		case strings.HasPrefix(key, PreprocessorPrefix):
			pre[strings.TrimPrefix(key, PreprocessorPrefix)] = value
		case strings.HasPrefix(key, ModelPrefix):
			clf[strings.TrimPrefix(key, ModelPrefix)] = value
		default:
			return errors.NewValidationError(key, "parameter must start with preprocessor__ or model__", value)
		}
	}
	if len(pre) > 0 {
		if err := p.Preprocessor.SetParams(pre); err != nil {
			return err
		}
	}
	if len(clf) > 0 {
		if err := p.Model.SetParams(clf); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted pipeline with the same parameters.
func (p *Pipeline) Clone() *Pipeline {
	out := &Pipeline{}
	if p.Preprocessor != nil {
		out.Preprocessor = p.Preprocessor.Clone()
	}
	if p.Model != nil {
		out.Model = p.Model.Clone()
	}
	return out
}

func (p *Pipeline) check() error {
	if p.Preprocessor == nil {
		return errors.NewValidationError("preprocessor", "pipeline step is missing", nil)
	}
	if p.Model == nil {
		return errors.NewValidationError("model", "pipeline step is missing", nil)
	}
	return nil
}

// String returns the steps of the pipeline.
func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(steps=[preprocessor=%v, model=%v])", p.Preprocessor, p.Model)
}

// FormatParams renders params as "key=value" pairs in key order.
func FormatParams(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return strings.Join(parts, ", ")
}
