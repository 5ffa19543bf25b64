// Package log defines standard attribute keys for training operations.
//
// Using these keys keeps log analysis consistent across the data loader,
// the estimators, the grid search and the CLI. Keys follow a hierarchical
// naming convention (e.g. "model.name", "data.samples", "cv.candidate").

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of estimator.
	// Examples: "RandomForestClassifier", "ColumnTransformer"
	ModelNameKey = "model.name"

	// EstimatorIDKey provides a unique identifier for a specific estimator instance.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is logging.
	// Examples: "dataset", "model_selection", "training"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the run.
	// Examples: "training", "validation", "testing", "preprocessing"
	PhaseKey = "ml.phase"

	// RunIDKey identifies one end-to-end training run.
	RunIDKey = "run.id"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// PathKey records the file a dataset or artifact was read from or written to.
	PathKey = "data.path"

	// ClassCountsKey records the label distribution.
	ClassCountsKey = "data.class_counts"

	// MissingKey records the number of missing cells encountered.
	MissingKey = "data.missing"

	// TrainSamplesKey and TestSamplesKey record the sizes of the hold-out split.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"
)

// Cross-validation and Search
const (
	// CVSplitsKey records the number of cross-validation folds.
	CVSplitsKey = "cv.splits"

	// CandidatesKey records the number of hyperparameter combinations.
	CandidatesKey = "cv.candidates"

	// CandidateKey identifies one hyperparameter combination by grid index.
	CandidateKey = "cv.candidate"

	// FoldKey identifies one cross-validation fold.
	FoldKey = "cv.fold"

	// ScoringKey names the scorer used for model selection.
	ScoringKey = "cv.scoring"

	// ScoreKey records a (cross-validated) score.
	ScoreKey = "cv.score"

	// JobsKey records the number of parallel workers.
	JobsKey = "cv.jobs"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// DurationSecondsKey records the execution time in seconds for longer operations.
	DurationSecondsKey = "perf.duration_seconds"

	// AccuracyKey records accuracy.
	AccuracyKey = "metrics.accuracy"

	// LossKey records a loss value (log-loss for this project).
	LossKey = "metrics.loss"

	// ROCAUCKey records the area under the ROC curve.
	ROCAUCKey = "metrics.roc_auc"

	// BrierKey records the Brier score.
	BrierKey = "metrics.brier"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"

	// WarningKey carries a structured warning object.
	WarningKey = "warning"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains estimator hyperparameters.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// ConfigVersionKey tracks configuration or model version.
	ConfigVersionKey = "config.version"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"
	OperationLoad         = "load"
	OperationSave         = "save"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorSchema            = "SCHEMA_MISMATCH"
	ErrorFitFailed         = "FIT_FAILED"
)
