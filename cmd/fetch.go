package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/config"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/factory"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/source"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download ridership archives from the open data portal",
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Source.Type != "ckan" {
		return fmt.Errorf("fetch needs a ckan source, got %q", cfg.Source.Type)
	}
	var ckanCfg source.CKANConfig
	if err := factory.Decode(cfg.Source.Conf, &ckanCfg); err != nil {
		return fmt.Errorf("source conf: %w", err)
	}
	src, err := source.NewCKANSource(ckanCfg)
	if err != nil {
		return err
	}
	return src.Fetch(ctx)
}
