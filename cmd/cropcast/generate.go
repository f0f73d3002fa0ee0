package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cropcast/internal/cli"
	"github.com/Veraticus/cropcast/internal/config"
	"github.com/Veraticus/cropcast/internal/source"
	"github.com/Veraticus/cropcast/internal/synth"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic training dataset",
		Long: `Generate synthetic agronomic records and write them as CSV. By default
the file replaces the training data cache, so the next training run uses it.`,
		RunE: runGenerate,
	}

	cmd.Flags().Int("samples", synth.DefaultSamples, "number of records")
	cmd.Flags().Uint64("seed", synth.DefaultSeed, "random seed")
	cmd.Flags().StringP("output", "o", "", "output file (default: the configured cache path)")

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	samples, _ := cmd.Flags().GetInt("samples")
	seed, _ := cmd.Flags().GetUint64("seed")
	output, _ := cmd.Flags().GetString("output")

	if samples <= 0 {
		return fmt.Errorf("--samples must be positive, got %d", samples)
	}

	if output == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		output = cfg.Cache.Path
	}
	output = config.ExpandPath(output)

	ds := synth.NewGenerator(seed).Dataset(samples)
	if err := source.NewCSVCache(output).Save(ds); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Wrote %d synthetic records to %s", ds.Len(), output)))
	return nil
}
