package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/swingprob/config"
	"github.com/YuminosukeSato/swingprob/pkg/errors"
	"github.com/YuminosukeSato/swingprob/training"
)

func newPredictCmd() *cobra.Command {
	var modelPath, dataPath, outPath string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Write swing probabilities for a CSV file",
		Args:  cobra.NoArgs,
		RunE: recovered(func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return training.Predict(modelPath, dataPath, cmd.OutOrStdout())
			}
			f, err := os.Create(outPath)
			if err != nil {
				return errors.Wrapf(err, "failed to create %s", outPath)
			}
			if err := training.Predict(modelPath, dataPath, f); err != nil {
				f.Close()
				return err
			}
			return errors.WithStack(f.Close())
		}),
	}
	cmd.Flags().StringVar(&modelPath, "model", config.DefaultModelPath, "saved pipeline")
	cmd.Flags().StringVar(&dataPath, "data", "", "CSV with the feature columns")
	cmd.Flags().StringVar(&outPath, "out", "", "output CSV (default stdout)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newEvaluateCmd() *cobra.Command {
	var modelPath, dataPath string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Print ROC AUC, Brier score and log loss of a saved model on a labeled CSV",
		Args:  cobra.NoArgs,
		RunE: recovered(func(cmd *cobra.Command, args []string) error {
			_, err := training.EvaluateModel(modelPath, dataPath, cmd.OutOrStdout())
			return err
		}),
	}
	cmd.Flags().StringVar(&modelPath, "model", config.DefaultModelPath, "saved pipeline")
	cmd.Flags().StringVar(&dataPath, "data", "", "labeled CSV")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
