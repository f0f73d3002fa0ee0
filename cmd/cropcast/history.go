package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cropcast/internal/cli"
	"github.com/Veraticus/cropcast/internal/storage"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded predictions and training runs",
		RunE:  runHistory,
	}

	cmd.Flags().IntP("limit", "n", 10, "number of rows to show")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := storage.NewSQLiteStorage(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer closeHistory(store)

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	count, err := store.CountPredictions(ctx)
	if err != nil {
		return err
	}
	preds, err := store.RecentPredictions(ctx, limit)
	if err != nil {
		return err
	}
	runs, err := store.RecentTrainingRuns(ctx, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Predictions (%d recorded)", count)))
	if len(preds) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No predictions recorded. Enable history.enabled to record them."))
	} else {
		fmt.Fprintln(out, cli.RenderPredictions(preds))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.FormatTitle("Training runs"))
	if len(runs) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No training runs recorded."))
	} else {
		fmt.Fprintln(out, cli.RenderTrainingRuns(runs))
	}
	return nil
}
