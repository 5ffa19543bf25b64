// Package model provides the estimator interfaces, fitted-state bookkeeping
// and persistence shared by every model in the project.
package model

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}

// Classifier combines interfaces for probabilistic classification models.
type Classifier interface {
	Fitter
	Predictor
	ProbabilisticPredictor
	ParameterGetter
	ParameterSetter

	// Classes returns the sorted class labels seen during fitting.
	// PredictProba columns follow this order.
	Classes() []float64

	// Clone returns an unfitted copy carrying the same hyperparameters.
	Clone() Classifier
}
