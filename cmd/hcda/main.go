package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hcda/config"
	"hcda/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hcda",
		Short:         "Hospital patient load forecasting and resource alerts",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(serveCmd())
	return rootCmd
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, config.NewLogger(cfg.Log.Level, cfg.Log.Format), nil
}

// pushMetrics hands the command's counters to the Pushgateway when one is
// configured. Failures are logged only.
func pushMetrics(cfg config.MetricsConfig, logger zerolog.Logger, job string) {
	if cfg.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(cfg.PushgatewayURL, job); err != nil {
		logger.Warn().Err(err).Str("job", job).Msg("metrics push failed")
		return
	}
	logger.Debug().Str("job", job).Msg("metrics pushed")
}
