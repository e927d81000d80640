package dataset

import (
	"gonum.org/v1/gonum/stat"

	"hcda/models"
)

// Patients returns the patient column as floats.
func Patients(records []models.HospitalDailyRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = float64(r.Patients)
	}
	return out
}

// Summarize computes the dashboard headline figures. records must be non-empty.
func Summarize(records []models.HospitalDailyRecord) models.Summary {
	s := models.Summary{
		Days:   len(records),
		From:   records[0].Date,
		To:     records[len(records)-1].Date,
		Mean:   stat.Mean(Patients(records), nil),
		Latest: records[len(records)-1].Patients,
	}
	for _, r := range records {
		s.Max = max(s.Max, r.Patients)
	}
	return s
}
