package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/cropcast/internal/artifact"
	"github.com/Veraticus/cropcast/internal/cli"
	"github.com/Veraticus/cropcast/internal/training"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the yield model",
		Long: `Acquire training data (database, then cache, then synthetic), fit the
random forest, evaluate it on a held-out split and with k-fold cross
validation, and write the model artifacts.`,
		RunE: runTrain,
	}

	cmd.Flags().Int("trees", 100, "number of trees in the forest")
	cmd.Flags().Int("max-depth", 10, "maximum tree depth")
	cmd.Flags().Uint64("seed", 42, "random seed for synthetic data, splitting and the forest")
	cmd.Flags().Int("samples", 2000, "rows of synthetic data when no other source is adequate")
	cmd.Flags().Bool("no-db", false, "skip the database source")
	cmd.Flags().Bool("quiet", false, "hide the progress bar")

	_ = viper.BindPFlag("training.trees", cmd.Flags().Lookup("trees"))
	_ = viper.BindPFlag("training.max_depth", cmd.Flags().Lookup("max-depth"))
	_ = viper.BindPFlag("training.seed", cmd.Flags().Lookup("seed"))
	_ = viper.BindPFlag("training.synthetic_samples", cmd.Flags().Lookup("samples"))

	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	noDB, _ := cmd.Flags().GetBool("no-db")
	quiet, _ := cmd.Flags().GetBool("quiet")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noDB {
		cfg.Database.Enabled = false
	}

	history, err := initHistory(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeHistory(history)

	out := cmd.OutOrStdout()
	var opts []training.Option
	if !quiet {
		bar := cli.NewTrainingProgress(os.Stderr, cfg.Training.Trees)
		opts = append(opts, training.WithProgress(func() {
			if err := bar.Add(1); err != nil {
				slog.Debug("Failed to advance progress bar", "error", err)
			}
		}))
	}

	interrupts := cli.NewInterruptHandler(out)
	ctx, stop := interrupts.HandleInterrupts(cmd.Context(), "Training")
	defer stop()

	pipeline := newPipeline(cfg, history, opts...)
	report, err := pipeline.Run(ctx)
	if err != nil {
		if interrupts.WasInterrupted() {
			return nil
		}
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Fprintln(out, cli.RenderTrainingReport(report, cfg.Model.Dir))

	m, err := artifact.NewStore(cfg.Model.Dir).Load()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatTitle("Feature importance"))
	fmt.Fprintln(out, cli.RenderImportances(m.Metadata.FeatureImportance))
	return nil
}
