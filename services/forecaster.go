package services

import (
	"errors"
	"time"

	"hcda/alert"
	"hcda/dataset"
	"hcda/forecast"
	"hcda/metrics"
	"hcda/models"
)

// Outcome bundles a forecast with the decision derived from it.
type Outcome struct {
	Summary  models.Summary
	Result   *forecast.Result
	Decision models.AlertDecision
}

// Future returns the horizon rows only.
func (o *Outcome) Future() []models.ForecastRecord {
	return o.Result.Future()
}

// Forecaster runs the pipeline and classifies the horizon peak against the
// historical mean. It holds no per-run state.
type Forecaster struct {
	pipeline *forecast.Pipeline
	policy   alert.Policy
}

func NewForecaster(pipeline *forecast.Pipeline, policy alert.Policy) *Forecaster {
	return &Forecaster{pipeline: pipeline, policy: policy}
}

func (f *Forecaster) Run(history []models.HospitalDailyRecord, horizon int, source string) (*Outcome, error) {
	if len(history) == 0 {
		err := dataset.ErrEmpty
		metrics.ObserveForecast(source, time.Now(), err)
		return nil, err
	}

	start := time.Now()
	res, err := f.pipeline.Run(history, horizon)
	metrics.ObserveForecast(source, start, err)
	if err != nil {
		return nil, err
	}

	summary := dataset.Summarize(history)
	decision := f.policy.Classify(summary.Mean, res.FuturePredictions())
	metrics.ObserveDecision(decision)

	return &Outcome{Summary: summary, Result: res, Decision: decision}, nil
}

// IsInputError reports whether err was caused by the request rather than the
// model or the data file.
func IsInputError(err error) bool {
	return errors.Is(err, forecast.ErrInvalidHorizon)
}
