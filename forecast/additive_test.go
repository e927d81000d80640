package forecast

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epochStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// syntheticFrame builds a series with a linear trend, a weekly cycle and a
// temperature effect plus small deterministic noise.
func syntheticFrame(n int, noise float64) (Frame, []float64) {
	rng := rand.New(rand.NewPCG(1, 2))
	f := Frame{
		Dates: make([]time.Time, n),
		Y:     make([]float64, n),
		Regressors: map[string][]float64{
			RegressorTemperature: make([]float64, n),
			RegressorMonth:       make([]float64, n),
		},
	}
	truth := make([]float64, n)
	for i := 0; i < n; i++ {
		d := epochStart.AddDate(0, 0, i)
		temp := 20 + float64(rng.IntN(20))
		weekly := 8 * math.Sin(2*math.Pi*epochDays(d)/7)
		truth[i] = 120 + 0.05*float64(i) + weekly + 0.5*(temp-30)

		f.Dates[i] = d
		f.Y[i] = truth[i] + noise*rng.NormFloat64()
		f.Regressors[RegressorTemperature][i] = temp
		f.Regressors[RegressorMonth][i] = float64(d.Month())
	}
	return f, truth
}

func TestAdditiveRecoversSignal(t *testing.T) {
	frame, truth := syntheticFrame(365, 2)

	fitted, err := NewAdditive(DefaultAdditiveConfig()).Fit(frame)
	require.NoError(t, err)

	preds, err := fitted.Predict(Frame{Dates: frame.Dates, Regressors: frame.Regressors})
	require.NoError(t, err)
	require.Len(t, preds, len(truth))

	var absErr float64
	covered := 0
	for i, p := range preds {
		absErr += math.Abs(p.Predicted - truth[i])
		assert.LessOrEqual(t, p.Lower, p.Predicted)
		assert.LessOrEqual(t, p.Predicted, p.Upper)
		if frame.Y[i] >= p.Lower && frame.Y[i] <= p.Upper {
			covered++
		}
	}
	assert.Less(t, absErr/float64(len(preds)), 2.0, "mean absolute error against the noiseless signal")

	// An 80% band should cover roughly 80% of the observations.
	coverage := float64(covered) / float64(len(preds))
	assert.InDelta(t, 0.8, coverage, 0.12)
}

func TestAdditiveDeterministic(t *testing.T) {
	frame, _ := syntheticFrame(120, 3)
	model := NewAdditive(DefaultAdditiveConfig())

	a, err := model.Fit(frame)
	require.NoError(t, err)
	b, err := model.Fit(frame)
	require.NoError(t, err)

	future := Frame{Dates: frame.Dates, Regressors: frame.Regressors}
	pa, err := a.Predict(future)
	require.NoError(t, err)
	pb, err := b.Predict(future)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestAdditiveIntervalWidens(t *testing.T) {
	frame, _ := syntheticFrame(200, 2)
	cfg := DefaultAdditiveConfig()

	cfg.IntervalWidth = 0.5
	narrow, err := NewAdditive(cfg).Fit(frame)
	require.NoError(t, err)
	cfg.IntervalWidth = 0.95
	wide, err := NewAdditive(cfg).Fit(frame)
	require.NoError(t, err)

	future := Frame{Dates: frame.Dates[:10], Regressors: map[string][]float64{
		RegressorTemperature: frame.Regressors[RegressorTemperature][:10],
		RegressorMonth:       frame.Regressors[RegressorMonth][:10],
	}}
	pn, err := narrow.Predict(future)
	require.NoError(t, err)
	pw, err := wide.Predict(future)
	require.NoError(t, err)

	for i := range pn {
		assert.InDelta(t, pn[i].Predicted, pw[i].Predicted, 1e-9)
		assert.Greater(t, pw[i].Upper-pw[i].Lower, pn[i].Upper-pn[i].Lower)
	}
}

func TestAdditiveFitErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *Frame)
		want   error
	}{
		{"too short", func(f *Frame) {
			f.Dates, f.Y = f.Dates[:10], f.Y[:10]
			for k, v := range f.Regressors {
				f.Regressors[k] = v[:10]
			}
		}, ErrInsufficientHistory},
		{"missing temperature", func(f *Frame) { delete(f.Regressors, RegressorTemperature) }, ErrMissingRegressor},
		{"short month column", func(f *Frame) { f.Regressors[RegressorMonth] = f.Regressors[RegressorMonth][:5] }, ErrMissingRegressor},
		{"constant temperature", func(f *Frame) {
			for i := range f.Regressors[RegressorTemperature] {
				f.Regressors[RegressorTemperature][i] = 25
			}
		}, ErrDegenerateRegressor},
		{"nan temperature", func(f *Frame) { f.Regressors[RegressorTemperature][3] = math.NaN() }, ErrDegenerateRegressor},
		{"nan target", func(f *Frame) { f.Y[4] = math.NaN() }, ErrInvalidFrame},
		{"target length mismatch", func(f *Frame) { f.Y = f.Y[:50] }, ErrInvalidFrame},
		{"unsorted dates", func(f *Frame) { f.Dates[10], f.Dates[11] = f.Dates[11], f.Dates[10] }, ErrInvalidFrame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, _ := syntheticFrame(90, 2)
			tt.mutate(&frame)
			_, err := NewAdditive(DefaultAdditiveConfig()).Fit(frame)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAdditivePredictMissingRegressor(t *testing.T) {
	frame, _ := syntheticFrame(90, 2)
	fitted, err := NewAdditive(DefaultAdditiveConfig()).Fit(frame)
	require.NoError(t, err)

	_, err = fitted.Predict(Frame{
		Dates:      frame.Dates,
		Regressors: map[string][]float64{RegressorMonth: frame.Regressors[RegressorMonth]},
	})
	assert.ErrorIs(t, err, ErrMissingRegressor)
}

func TestMinHistory(t *testing.T) {
	cfg := DefaultAdditiveConfig()
	assert.Equal(t, 14, cfg.MinHistory())

	cfg.WeeklySeasonality = false
	assert.Equal(t, 731, cfg.MinHistory())

	cfg.YearlySeasonality = false
	assert.Equal(t, 2, cfg.MinHistory())
}
