package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/cropcast/internal/api"
	"github.com/Veraticus/cropcast/internal/artifact"
	"github.com/Veraticus/cropcast/internal/prediction"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
		Long: `Start the prediction API. The model is loaded (or trained) before the
server starts listening.

Routes:
  POST /api/v1/predict   estimate the yield for a JSON record
  GET  /api/v1/model     metadata of the loaded model
  POST /api/v1/train     retrain and swap in the new model
  GET  /health           liveness
  GET  /metrics          Prometheus metrics`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":5000", "listen address")
	cmd.Flags().Bool("history", false, "record answered predictions in the history database")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("history.enabled", cmd.Flags().Lookup("history"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	history, err := initHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeHistory(history)

	var opts []prediction.Option
	if history != nil {
		opts = append(opts, prediction.WithHistory(history))
	}
	svc := prediction.NewService(artifact.NewStore(cfg.Model.Dir), newPipeline(cfg, history), opts...)

	if _, err := svc.Handle(ctx); err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	srv := api.NewServer(svc, cfg.Server.Addr, api.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout))
	return srv.ListenAndServe(ctx)
}
