package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hcda/models"
)

const (
	SourceBatch     = "batch"
	SourceDashboard = "dashboard"
	SourceAPI       = "api"
)

var (
	ForecastRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hcda_forecast_runs_total",
		Help: "Total number of forecast runs by source and outcome.",
	}, []string{"source", "outcome"})

	FitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hcda_forecast_fit_duration_seconds",
		Help:    "Duration of a full fit and predict.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
	})

	AlertDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hcda_alert_decisions_total",
		Help: "Total number of alert decisions by status.",
	}, []string{"status"})

	NotifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hcda_notify_failures_total",
		Help: "Total number of failed alert deliveries by sink.",
	}, []string{"sink"})

	RecordsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hcda_generator_records_total",
		Help: "Total number of synthetic daily records generated.",
	})
)

// ObserveForecast records one pipeline run started at start.
func ObserveForecast(source string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	ForecastRuns.WithLabelValues(source, outcome).Inc()
	if err == nil {
		FitDuration.Observe(time.Since(start).Seconds())
	}
}

func ObserveDecision(d models.AlertDecision) {
	AlertDecisions.WithLabelValues(string(d.Status)).Inc()
}
