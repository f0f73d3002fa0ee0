package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Veraticus/cropcast/internal/api"
	"github.com/Veraticus/cropcast/internal/artifact"
	"github.com/Veraticus/cropcast/internal/cli"
	"github.com/Veraticus/cropcast/internal/model"
	"github.com/Veraticus/cropcast/internal/prediction"
)

var predictStringFlags = map[string]string{
	"crop":   model.ColCropType,
	"region": model.ColRegion,
	"soil":   model.ColSoilType,
}

var predictFloatFlags = map[string]string{
	"temperature":    model.ColTemperature,
	"rainfall":       model.ColRainfall,
	"humidity":       model.ColHumidity,
	"soil-ph":        model.ColSoilPH,
	"nitrogen":       model.ColNitrogen,
	"phosphorus":     model.ColPhosphorus,
	"potassium":      model.ColPotassium,
	"organic-matter": model.ColOrganicMatter,
	"area":           "area",
}

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate the yield for one field",
		Long: `Estimate the yield for one field. Inputs can be given as flags or as a
JSON object; omitted inputs take defaults. A model is trained first if
none has been saved yet.`,
		Example: `  cropcast predict --crop rice --region coastal --soil alluvial --rainfall 1200
  cropcast predict --json '{"cropType":"wheat","temperature":22}'`,
		RunE: runPredict,
	}

	cmd.Flags().String("json", "", "input record as a JSON object")
	cmd.Flags().Bool("output-json", false, "print the result as JSON")
	for name := range predictStringFlags {
		cmd.Flags().String(name, "", strings.ReplaceAll(predictStringFlags[name], "_", " "))
	}
	for name := range predictFloatFlags {
		cmd.Flags().Float64(name, 0, strings.ReplaceAll(predictFloatFlags[name], "_", " "))
	}

	return cmd
}

// rawFromFlags builds the prediction input from --json and any flags the
// user set. Flags override keys from --json.
func rawFromFlags(flags *pflag.FlagSet) (map[string]any, error) {
	raw := make(map[string]any)

	if doc, _ := flags.GetString("json"); doc != "" {
		if err := json.Unmarshal([]byte(doc), &raw); err != nil {
			return nil, fmt.Errorf("invalid --json: %w", err)
		}
		if raw == nil {
			raw = make(map[string]any)
		}
	}

	for name, col := range predictStringFlags {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			raw[col] = v
		}
	}
	for name, col := range predictFloatFlags {
		if flags.Changed(name) {
			v, _ := flags.GetFloat64(name)
			raw[col] = v
		}
	}
	return raw, nil
}

func runPredict(cmd *cobra.Command, _ []string) error {
	raw, err := rawFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("output-json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	history, err := initHistory(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeHistory(history)

	var opts []prediction.Option
	if history != nil {
		opts = append(opts, prediction.WithHistory(history))
	}
	svc := prediction.NewService(artifact.NewStore(cfg.Model.Dir), newPipeline(cfg, history), opts...)

	y, err := svc.Predict(cmd.Context(), raw)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	runID := ""
	if h := svc.Current(); h != nil {
		runID = h.RunID()
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return json.NewEncoder(out).Encode(api.PredictResponse{
			PredictedYield: y,
			Unit:           api.YieldUnit,
			ModelRunID:     runID,
		})
	}
	fmt.Fprintln(out, cli.RenderPrediction(y, api.YieldUnit, runID))
	return nil
}
