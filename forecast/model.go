// Package forecast fits a seasonal regression model to the hospital table and
// projects patient load over a horizon.
package forecast

import (
	"errors"
	"time"

	"hcda/models"
)

var (
	ErrInsufficientHistory = errors.New("insufficient history to fit model")
	ErrMissingRegressor    = errors.New("missing regressor")
	ErrDegenerateRegressor = errors.New("degenerate regressor")
	ErrInvalidFrame        = errors.New("invalid frame")
	ErrFitFailed           = errors.New("model fit failed")
	ErrInvalidHorizon      = errors.New("horizon must be positive")
)

// Frame is a column-oriented table of timestamps, an optional target and
// named exogenous regressors.
type Frame struct {
	Dates      []time.Time
	Y          []float64
	Regressors map[string][]float64
}

func (f Frame) Len() int { return len(f.Dates) }

// Model fits a history frame. Implementations must be deterministic.
type Model interface {
	Fit(history Frame) (Fitted, error)
}

// Fitted predicts point estimates and uncertainty bands for every row of a
// frame that carries the same regressors the model was fitted with.
type Fitted interface {
	Predict(future Frame) ([]models.ForecastRecord, error)
}
