package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/app"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/config"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline on a schedule and serve results over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Serving without a schedule would exit after one pass.
	if cfg.Pipeline.Schedule == "" {
		cfg.Pipeline.Schedule = "@hourly"
	}
	cfg.API.Enabled = true
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
