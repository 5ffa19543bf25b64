package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/swingprob/config"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/pkg/log"
	"github.com/YuminosukeSato/swingprob/sklearn/model_selection"
	"github.com/YuminosukeSato/swingprob/training"
)

type logFlags struct {
	level  string
	format string
}

func newRootCmd() *cobra.Command {
	defaults := config.Default()
	lf := &logFlags{level: defaults.LogLevel, format: defaults.LogFormat}
	cfg := config.Default()

	root := &cobra.Command{
		Use:           "swingtrain",
		Short:         "Train the swing probability model",
		Long:          "Trains a random forest swing probability model with a cross-validated grid search,\nreports held-out ROC AUC, Brier score and log loss, and saves the best pipeline.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return log.SetupLogger(lf.level, lf.format, cmd.ErrOrStderr())
		},
		RunE: recovered(func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, cfg)
		}),
	}
	root.PersistentFlags().StringVar(&lf.level, "log-level", lf.level, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&lf.format, "log-format", lf.format, "log format (json, console)")
	bindTrainFlags(root, &cfg)

	root.AddCommand(newTrainCmd(), newPredictCmd(), newEvaluateCmd())
	return root
}

func newTrainCmd() *cobra.Command {
	cfg := config.Default()
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run the grid search and save the best model",
		Args:  cobra.NoArgs,
		RunE: recovered(func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, cfg)
		}),
	}
	bindTrainFlags(cmd, &cfg)
	return cmd
}

func bindTrainFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	f.StringVar(&cfg.DataPath, "data", cfg.DataPath, "training CSV")
	f.StringVar(&cfg.ModelPath, "model-out", cfg.ModelPath, "where to save the fitted pipeline")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "seed for the train/test split and the forest")
	f.Float64Var(&cfg.TestSize, "test-size", cfg.TestSize, "held-out fraction")
	f.IntVar(&cfg.CV, "cv", cfg.CV, "number of stratified folds")
	f.IntVar(&cfg.NJobs, "jobs", cfg.NJobs, "concurrent fits (-1 uses all cores)")
	f.StringVar(&cfg.Scoring, "scoring", cfg.Scoring, "grid search scorer, one of "+joinScorers())
	f.IntVar(&cfg.Verbose, "verbose", cfg.Verbose, "grid search verbosity")
	f.StringVar(&cfg.ReportDir, "report-dir", "", "write the JSON report and plots to this directory")
	f.StringVar(&cfg.MetricsFile, "metrics-file", "", "write run metrics in Prometheus textfile format")
}

func runTrain(cmd *cobra.Command, cfg config.Config) error {
	_, err := training.Run(cmd.Context(), cfg, cmd.OutOrStdout())
	return err
}

// recovered reports a panic inside a command as a PanicError.
func recovered(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return errors.SafeExecute(cmd.CommandPath(), func() error {
			return run(cmd, args)
		})
	}
}

func joinScorers() string {
	return strings.Join(model_selection.ScorerNames(), ", ")
}
