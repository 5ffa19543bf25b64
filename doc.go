// Package swingprob trains a model that predicts whether a batter swings at a
// pitch, using pitch-tracking features.
//
// The training run loads data/raw/swing_data.csv, holds out a stratified 20%
// test split, and grid-searches a random forest pipeline with 5-fold
// stratified cross-validation scored by negative log loss. The best pipeline
// is evaluated on the test split (ROC AUC, Brier score, log loss) and saved to
// models/swing_probability_model.gob together with a JSON manifest.
//
// # Quick Start
//
//	go run ./cmd/swingtrain
//
// or, with overrides:
//
//	go run ./cmd/swingtrain train --data pitches.csv --cv 3 --jobs 4 --report-dir out/
//	go run ./cmd/swingtrain predict --model models/swing_probability_model.gob --data new.csv
//
// From Go:
//
//	cfg := config.Default()
//	res, err := training.Run(ctx, cfg, os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.BestParams)
//
// # Packages
//
//   - dataset: CSV loading, the swing schema and typed column frames
//   - preprocessing: imputers, StandardScaler, OneHotEncoder, ColumnTransformer
//   - sklearn/tree: CART decision tree classifier
//   - sklearn/ensemble: RandomForestClassifier
//   - sklearn/pipeline: preprocessing + classifier pipeline
//   - sklearn/model_selection: splits, KFold/StratifiedKFold, scorers, GridSearchCV
//   - metrics: ROC AUC, Brier score, log loss, ROC and calibration curves
//   - core/model: estimator interfaces, gob persistence, model manifests
//   - core/parallel: bounded worker pools
//   - training: the end-to-end run, prediction and evaluation
//   - report: JSON report and ROC/calibration plots
//   - pkg/errors, pkg/log, pkg/telemetry: errors, zerolog logging, Prometheus metrics
//
// # scikit-learn Compatibility
//
// Estimators follow scikit-learn naming and parameter semantics
// (GetParams/SetParams, "model__max_depth" style pipeline parameters,
// ParameterGrid ordering, StratifiedKFold fold assignment), so a grid written
// for scikit-learn carries over unchanged:
//
//	grid := model_selection.ParamGrid{
//	    "model__n_estimators":      {100, 200, 400},
//	    "model__max_depth":         {20, 40, nil},
//	    "model__min_samples_split": {4, 10, 20},
//	}
package swingprob
