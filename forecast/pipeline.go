package forecast

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"hcda/models"
)

const (
	RegressorTemperature = "temperature"
	RegressorMonth       = "month"

	DefaultTemperatureWindow = 7
)

// Pipeline turns the hospital table into a clipped forecast covering history
// plus a horizon.
type Pipeline struct {
	model             Model
	temperatureWindow int
}

func NewPipeline(model Model, temperatureWindow int) *Pipeline {
	if temperatureWindow <= 0 {
		temperatureWindow = DefaultTemperatureWindow
	}
	return &Pipeline{model: model, temperatureWindow: temperatureWindow}
}

// NewDefaultPipeline wires the additive model with the given interval width.
func NewDefaultPipeline(intervalWidth float64, temperatureWindow int) *Pipeline {
	cfg := DefaultAdditiveConfig()
	if intervalWidth > 0 && intervalWidth < 1 {
		cfg.IntervalWidth = intervalWidth
	}
	return NewPipeline(NewAdditive(cfg), temperatureWindow)
}

type Result struct {
	Records    []models.ForecastRecord
	Horizon    int
	HistoryEnd time.Time
}

// Future returns the rows beyond the last historical date.
func (r *Result) Future() []models.ForecastRecord {
	return r.Records[len(r.Records)-r.Horizon:]
}

// FuturePredictions returns the point forecasts over the horizon.
func (r *Result) FuturePredictions() []float64 {
	future := r.Future()
	out := make([]float64, len(future))
	for i, rec := range future {
		out[i] = rec.Predicted
	}
	return out
}

func (p *Pipeline) Run(history []models.HospitalDailyRecord, horizon int) (*Result, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidHorizon, horizon)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrInsufficientHistory)
	}

	fitted, err := p.model.Fit(HistoryFrame(history))
	if err != nil {
		return nil, err
	}

	records, err := fitted.Predict(FutureFrame(history, horizon, p.temperatureWindow))
	if err != nil {
		return nil, err
	}
	Clip(records)

	return &Result{
		Records:    records,
		Horizon:    horizon,
		HistoryEnd: history[len(history)-1].Date,
	}, nil
}

// HistoryFrame reshapes the table into the model schema with the target
// clipped at zero.
func HistoryFrame(history []models.HospitalDailyRecord) Frame {
	n := len(history)
	f := Frame{
		Dates: make([]time.Time, n),
		Y:     make([]float64, n),
		Regressors: map[string][]float64{
			RegressorTemperature: make([]float64, n),
			RegressorMonth:       make([]float64, n),
		},
	}
	for i, r := range history {
		f.Dates[i] = r.Date
		f.Y[i] = max(0, float64(r.Patients))
		f.Regressors[RegressorTemperature][i] = float64(r.Temperature)
		f.Regressors[RegressorMonth][i] = float64(r.Month)
	}
	return f
}

// FutureFrame covers every historical date plus horizon following days.
// Historical rows keep their observed temperature; future rows carry the mean
// of the trailing window forward. Month always comes from the calendar.
func FutureFrame(history []models.HospitalDailyRecord, horizon, window int) Frame {
	n := len(history)
	total := n + horizon
	f := Frame{
		Dates: make([]time.Time, total),
		Regressors: map[string][]float64{
			RegressorTemperature: make([]float64, total),
			RegressorMonth:       make([]float64, total),
		},
	}

	carried := TrailingTemperature(history, window)
	last := history[n-1].Date
	for i := 0; i < total; i++ {
		var d time.Time
		temp := carried
		if i < n {
			d = history[i].Date
			temp = float64(history[i].Temperature)
		} else {
			d = last.AddDate(0, 0, i-n+1)
		}
		f.Dates[i] = d
		f.Regressors[RegressorTemperature][i] = temp
		f.Regressors[RegressorMonth][i] = float64(d.Month())
	}
	return f
}

// TrailingTemperature is the mean temperature of the last window days.
func TrailingTemperature(history []models.HospitalDailyRecord, window int) float64 {
	start := max(0, len(history)-window)
	temps := make([]float64, 0, len(history)-start)
	for _, r := range history[start:] {
		temps = append(temps, float64(r.Temperature))
	}
	return stat.Mean(temps, nil)
}

// Clip enforces non-negativity on every value. Clipping is monotone, so
// lower <= predicted <= upper still holds afterwards.
func Clip(records []models.ForecastRecord) {
	for i := range records {
		records[i].Predicted = max(0, records[i].Predicted)
		records[i].Lower = max(0, records[i].Lower)
		records[i].Upper = max(0, records[i].Upper)
	}
}
