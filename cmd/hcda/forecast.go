package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hcda/alert"
	"hcda/chart"
	"hcda/config"
	"hcda/dataset"
	"hcda/forecast"
	"hcda/metrics"
	"hcda/models"
	"hcda/services"
)

const sinkTimeout = 10 * time.Second

func forecastCmd() *cobra.Command {
	var (
		in      string
		out     string
		plot    string
		horizon int
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Train on the dataset, forecast patient load and classify the alert",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer pushMetrics(cfg.Metrics, logger, metrics.JobForecast)
			flags := cmd.Flags()
			if flags.Changed("in") {
				cfg.Data.HistoryPath = in
			}
			if flags.Changed("out") {
				cfg.Data.ForecastPath = out
			}
			if flags.Changed("plot") {
				cfg.Data.PlotPath = plot
			}
			if flags.Changed("horizon") {
				cfg.Forecast.Horizon = horizon
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runForecast(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "input dataset CSV (default data/h_data.csv)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "forecast CSV path (default data/forecast_output.csv)")
	cmd.Flags().StringVar(&plot, "plot", "", "forecast chart path, .png or .svg (default data/forecast_plot.png)")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "days to forecast (default 30)")
	return cmd
}

func runForecast(ctx context.Context, cfg *config.Config, logger zerolog.Logger, stdout io.Writer) error {
	history, err := dataset.LoadHistory(cfg.Data.HistoryPath)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	forecaster := services.NewForecaster(
		forecast.NewDefaultPipeline(cfg.Forecast.IntervalWidth, cfg.Forecast.TemperatureWindow),
		alert.NewPolicy(cfg.Alert.Multiplier),
	)
	outcome, err := forecaster.Run(history, cfg.Forecast.Horizon, metrics.SourceBatch)
	if err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	logger.Info().
		Int("history_days", len(history)).
		Int("horizon", cfg.Forecast.Horizon).
		Msg("model trained")

	future := outcome.Future()
	fmt.Fprintf(stdout, "\nNext %d Days Patient Forecast:\n", len(future))
	if err := printForecast(stdout, future); err != nil {
		return err
	}

	if err := dataset.SaveForecast(cfg.Data.ForecastPath, future); err != nil {
		return fmt.Errorf("write forecast: %w", err)
	}
	fmt.Fprintf(stdout, "\nForecast saved to %s\n", cfg.Data.ForecastPath)

	p, err := chart.Forecast(history, outcome.Result.Records)
	if err != nil {
		return fmt.Errorf("forecast chart: %w", err)
	}
	p.Title.Text = fmt.Sprintf("Hospital Patient Forecast for Next %d Days", len(future))
	if err := chart.Save(cfg.Data.PlotPath, p); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	logger.Info().Str("path", cfg.Data.PlotPath).Msg("forecast chart written")

	d := outcome.Decision
	logger.Info().
		Str("status", string(d.Status)).
		Float64("peak", d.Peak).
		Float64("threshold", d.Threshold).
		Msg("alert classified")
	printDecision(stdout, d)

	deliver(ctx, cfg, logger, outcome)
	return nil
}

func printForecast(w io.Writer, records []models.ForecastRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tPredicted Patients\tLower Estimate\tUpper Estimate\t")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t\n", r.Date.Format(time.DateOnly), r.Predicted, r.Lower, r.Upper)
	}
	return tw.Flush()
}

func printDecision(w io.Writer, d models.AlertDecision) {
	fmt.Fprintf(w, "\n%s\n", d.Message)
	for _, a := range d.Actions {
		fmt.Fprintf(w, "  - %s\n", a)
	}
}

// deliver pushes the run to every configured sink. The forecast has already
// succeeded, so failures are only logged.
func deliver(ctx context.Context, cfg *config.Config, logger zerolog.Logger, outcome *services.Outcome) {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	if cfg.Database.Enabled {
		if err := persist(ctx, cfg, outcome); err != nil {
			metrics.NotifyFailures.WithLabelValues("postgres").Inc()
			logger.Error().Err(err).Msg("forecast not persisted")
		} else {
			logger.Info().Msg("forecast persisted")
		}
	}

	var notifiers alert.MultiNotifier
	if cfg.Redis.Enabled {
		bus, err := services.NewAlertBus(cfg.Redis, logger)
		if err != nil {
			metrics.NotifyFailures.WithLabelValues("redis").Inc()
			logger.Error().Err(err).Msg("redis unavailable")
		} else {
			defer bus.Close()
			notifiers = append(notifiers, counted("redis", bus))
		}
	}
	if cfg.MQTT.Enabled {
		mq, err := services.NewMQTTNotifier(cfg.MQTT, logger)
		if err != nil {
			metrics.NotifyFailures.WithLabelValues("mqtt").Inc()
			logger.Error().Err(err).Msg("mqtt unavailable")
		} else {
			defer mq.Close()
			notifiers = append(notifiers, counted("mqtt", mq))
		}
	}
	if len(notifiers) == 0 {
		return
	}

	if err := notifiers.Notify(ctx, outcome.Decision); err != nil {
		logger.Error().Err(err).Msg("alert delivery incomplete")
		return
	}
	logger.Info().Int("sinks", len(notifiers)).Msg("alert published")
}

func counted(sink string, n alert.Notifier) alert.Notifier {
	return alert.NotifierFunc(func(ctx context.Context, d models.AlertDecision) error {
		if err := n.Notify(ctx, d); err != nil {
			metrics.NotifyFailures.WithLabelValues(sink).Inc()
			return fmt.Errorf("%s: %w", sink, err)
		}
		return nil
	})
}

func persist(ctx context.Context, cfg *config.Config, outcome *services.Outcome) error {
	store, err := services.NewForecastStore(ctx, cfg.Database.GetDSN())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	d := outcome.Decision
	_, err = store.Save(ctx, models.ForecastRun{
		Horizon:        outcome.Result.Horizon,
		HistoryEnd:     outcome.Result.HistoryEnd,
		Status:         string(d.Status),
		Peak:           d.Peak,
		Threshold:      d.Threshold,
		HistoricalMean: d.HistoricalMean,
	}, outcome.Future())
	return err
}
