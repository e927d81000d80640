package generator

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hcda/dataset"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestGenerateInvariants(t *testing.T) {
	records, err := Generate(Params{Seed: 42, Start: start, Days: 365})
	require.NoError(t, err)
	require.Len(t, records, 365)

	for i, r := range records {
		assert.GreaterOrEqual(t, r.Patients, 50, "patients on %s", r.Date)
		for name, v := range map[string]int{
			"admissions":    r.Admissions,
			"discharges":    r.Discharges,
			"beds_occupied": r.BedsOccupied,
			"icu_occupied":  r.ICUOccupied,
			"oxygen_usage":  r.OxygenUsage,
			"emergencies":   r.Emergencies,
			"rainfall":      r.Rainfall,
		} {
			assert.GreaterOrEqual(t, v, 0, "%s on %s", name, r.Date)
		}
		assert.GreaterOrEqual(t, r.Temperature, 20)
		assert.Less(t, r.Temperature, 40)
		assert.Equal(t, int(r.Date.Month()), r.Month)
		assert.Equal(t, start.AddDate(0, 0, i), r.Date)
	}
	require.NoError(t, dataset.CheckContiguous(records))
}

func TestGenerateDerivedRanges(t *testing.T) {
	records, err := Generate(Params{Seed: 7, Start: start, Days: 200})
	require.NoError(t, err)

	for _, r := range records {
		if r.Anomaly {
			continue
		}
		assert.LessOrEqual(t, r.Admissions, int(float64(r.Patients)*0.35))
		assert.LessOrEqual(t, r.Discharges, r.Admissions)
		assert.LessOrEqual(t, r.BedsOccupied, r.Patients)
		assert.LessOrEqual(t, r.ICUOccupied, int(float64(r.Patients)*0.15))
		assert.LessOrEqual(t, r.OxygenUsage, r.ICUOccupied*30)
		assert.LessOrEqual(t, r.Emergencies, r.Admissions)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	p := Params{Seed: 42, Start: start, Days: 365}

	a, err := Generate(p)
	require.NoError(t, err)
	b, err := Generate(p)
	require.NoError(t, err)

	var bufA, bufB bytes.Buffer
	require.NoError(t, dataset.WriteHistory(&bufA, a))
	require.NoError(t, dataset.WriteHistory(&bufB, b))
	assert.Equal(t, bufA.Bytes(), bufB.Bytes())

	c, err := Generate(Params{Seed: 43, Start: start, Days: 365})
	require.NoError(t, err)
	var bufC bytes.Buffer
	require.NoError(t, dataset.WriteHistory(&bufC, c))
	assert.NotEqual(t, bufA.Bytes(), bufC.Bytes())
}

func TestGenerateAnomalies(t *testing.T) {
	records, err := Generate(Params{Seed: 42, Start: start, Days: 3650})
	require.NoError(t, err)

	dates := AnomalyDates(records)
	// 3% of ten years is about 110 days.
	assert.Greater(t, len(dates), 50)
	assert.Less(t, len(dates), 200)
}

func TestGenerateInvalidParams(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		want error
	}{
		{"zero days", Params{Seed: 1, Start: start, Days: 0}, ErrInvalidDays},
		{"negative days", Params{Seed: 1, Start: start, Days: -5}, ErrInvalidDays},
		{"zero start", Params{Seed: 1, Days: 10}, ErrInvalidStart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSeasonalFactor(t *testing.T) {
	tests := []struct {
		month time.Month
		want  float64
	}{
		{time.January, 1.25},
		{time.February, 1.0},
		{time.May, 1.0},
		{time.June, 1.15},
		{time.August, 1.15},
		{time.September, 1.0},
		{time.November, 1.25},
		{time.December, 1.25},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, SeasonalFactor(tt.month))
		})
	}
}
